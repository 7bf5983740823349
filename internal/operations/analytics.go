package operations

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"

	"campusevents/internal/model"
	"campusevents/internal/repository"
)

type Analytics struct {
	TotalRegistrations   int64   `json:"totalRegistrations"`
	Present              int64   `json:"present"`
	Absent               int64   `json:"absent"`
	Late                 int64   `json:"late"`
	Excused              int64   `json:"excused"`
	Pending              int64   `json:"pending"`
	FeedbackCount        int64   `json:"feedbackCount"`
	AverageRating        float64 `json:"averageRating"`
	AttendancePercentage float64 `json:"attendancePercentage"`
	NoShowPercentage     float64 `json:"noShowPercentage"`
}

// ComputeAnalytics derives percentages from raw counts. Percentages are
// relative to all non-cancelled registrations and rounded to two decimals;
// they are zero when there are no registrations.
func ComputeAnalytics(counts model.AttendanceCounts) Analytics {
	analytics := Analytics{
		TotalRegistrations: counts.Total,
		Present:            counts.Present,
		Absent:             counts.Absent,
		Late:               counts.Late,
		Excused:            counts.Excused,
		Pending:            counts.Pending,
		FeedbackCount:      counts.FeedbackCount,
	}
	if counts.AverageRating != nil {
		analytics.AverageRating = round2(*counts.AverageRating)
	}
	if counts.Total > 0 {
		total := float64(counts.Total)
		analytics.AttendancePercentage = round2(float64(counts.Present) / total * 100)
		analytics.NoShowPercentage = round2(float64(counts.Absent) / total * 100)
	}
	return analytics
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func (s *Service) EventAnalytics(ctx context.Context, actor Actor, eventID string) (Analytics, error) {
	if _, err := s.AuthorizeEvent(ctx, actor, eventID); err != nil {
		return Analytics{}, err
	}
	return s.EventCounts(ctx, eventID)
}

// LookupEventAnalytics aggregates without an actor, for callers that
// authenticate by other means.
func (s *Service) LookupEventAnalytics(ctx context.Context, eventID string) (Analytics, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return Analytics{}, notFound(ErrEventNotFound)
	}
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Analytics{}, notFound(ErrEventNotFound)
		}
		return Analytics{}, serverError(err)
	}
	return s.EventCounts(ctx, eventID)
}

// EventCounts aggregates an event's registrations. Callers authorize first.
func (s *Service) EventCounts(ctx context.Context, eventID string) (Analytics, error) {
	counts, err := s.store.EventAttendanceCounts(ctx, eventID)
	if err != nil {
		return Analytics{}, serverError(err)
	}
	return ComputeAnalytics(counts), nil
}

func (s *Service) ClubAnalytics(ctx context.Context, actor Actor, clubID string) (Analytics, error) {
	if _, err := s.AuthorizeClub(ctx, actor, clubID); err != nil {
		return Analytics{}, err
	}
	return s.ClubCounts(ctx, clubID)
}

// ClubCounts aggregates registrations across a club's events. Callers
// authorize first.
func (s *Service) ClubCounts(ctx context.Context, clubID string) (Analytics, error) {
	counts, err := s.store.ClubAttendanceCounts(ctx, clubID)
	if err != nil {
		return Analytics{}, serverError(err)
	}
	return ComputeAnalytics(counts), nil
}
