package http

import (
	"time"

	"campusevents/internal/model"
)

type membershipView struct {
	ClubID   string    `json:"clubId"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type userView struct {
	ID                string           `json:"id"`
	Email             string           `json:"email"`
	FullName          string           `json:"fullName"`
	Role              string           `json:"role"`
	RollNumber        *string          `json:"rollNumber,omitempty"`
	Branch            *string          `json:"branch,omitempty"`
	Year              *int32           `json:"year,omitempty"`
	Phone             *string          `json:"phone,omitempty"`
	ProfilePictureURL *string          `json:"profilePictureUrl,omitempty"`
	ClubMemberships   []membershipView `json:"clubMemberships"`
	CreatedAt         time.Time        `json:"createdAt"`
}

func newUserView(user model.User) userView {
	view := userView{
		ID:                user.ID,
		Email:             user.Email,
		FullName:          user.FullName,
		Role:              string(user.Role),
		RollNumber:        user.RollNumber,
		Branch:            user.Branch,
		Year:              user.Year,
		Phone:             user.Phone,
		ProfilePictureURL: user.ProfilePictureURL,
		ClubMemberships:   []membershipView{},
		CreatedAt:         user.CreatedAt,
	}
	for _, membership := range user.ClubMemberships {
		view.ClubMemberships = append(view.ClubMemberships, membershipView{
			ClubID:   membership.ClubID,
			Role:     membership.Role,
			JoinedAt: membership.JoinedAt,
		})
	}
	return view
}

type clubView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	LogoURL     *string   `json:"logoUrl,omitempty"`
	BannerURL   *string   `json:"bannerUrl,omitempty"`
	WebsiteURL  *string   `json:"websiteUrl,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	IsActive    bool      `json:"isActive"`
	MemberCount int32     `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newClubView(club model.Club) clubView {
	return clubView{
		ID:          club.ID,
		Name:        club.Name,
		Description: club.Description,
		LogoURL:     club.LogoURL,
		BannerURL:   club.BannerURL,
		WebsiteURL:  club.WebsiteURL,
		Email:       club.Email,
		Phone:       club.Phone,
		IsActive:    club.IsActive,
		MemberCount: club.MemberCount,
		CreatedAt:   club.CreatedAt,
	}
}

type eventView struct {
	ID                string     `json:"id"`
	ClubID            string     `json:"clubId"`
	ClubName          string     `json:"clubName,omitempty"`
	Title             string     `json:"title"`
	Description       *string    `json:"description,omitempty"`
	EventType         string     `json:"eventType"`
	PosterURL         *string    `json:"posterUrl,omitempty"`
	VenueAddress      *string    `json:"venueAddress,omitempty"`
	IsOnline          bool       `json:"isOnline"`
	OnlineLink        *string    `json:"onlineLink,omitempty"`
	StartAt           time.Time  `json:"startAt"`
	EndAt             *time.Time `json:"endAt,omitempty"`
	RegistrationOpen  *time.Time `json:"registrationOpen,omitempty"`
	RegistrationClose *time.Time `json:"registrationClose,omitempty"`
	MaxCapacity       *int32     `json:"maxCapacity,omitempty"`
	RegisteredCount   int32      `json:"registeredCount"`
	AttendedCount     *int32     `json:"attendedCount,omitempty"`
	IsPublished       bool       `json:"isPublished"`
	CreatedBy         string     `json:"createdBy"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func newEventView(event model.Event) eventView {
	return eventView{
		ID:                event.ID,
		ClubID:            event.ClubID,
		Title:             event.Title,
		Description:       event.Description,
		EventType:         string(event.EventType),
		PosterURL:         event.PosterURL,
		VenueAddress:      event.VenueAddress,
		IsOnline:          event.IsOnline,
		OnlineLink:        event.OnlineLink,
		StartAt:           event.StartAt,
		EndAt:             event.EndAt,
		RegistrationOpen:  event.RegistrationOpen,
		RegistrationClose: event.RegistrationClose,
		MaxCapacity:       event.MaxCapacity,
		RegisteredCount:   event.RegisteredCount,
		IsPublished:       event.IsPublished,
		CreatedBy:         event.CreatedBy,
		CreatedAt:         event.CreatedAt,
		UpdatedAt:         event.UpdatedAt,
	}
}

func newEventSummaryViews(events []model.EventSummary, withAttended bool) []eventView {
	views := make([]eventView, 0, len(events))
	for _, summary := range events {
		view := newEventView(summary.Event)
		view.ClubName = summary.ClubName
		if withAttended {
			attended := summary.AttendedCount
			view.AttendedCount = &attended
		}
		views = append(views, view)
	}
	return views
}

type attendanceLogView struct {
	MarkedBy  string    `json:"markedBy"`
	MarkedAt  time.Time `json:"markedAt"`
	Status    string    `json:"status"`
	Latitude  *float64  `json:"lat,omitempty"`
	Longitude *float64  `json:"long,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
}

type attendanceView struct {
	IsMarked bool                `json:"isMarked"`
	Status   string              `json:"status,omitempty"`
	MarkedAt *time.Time          `json:"markedAt,omitempty"`
	Logs     []attendanceLogView `json:"logs,omitempty"`
}

type feedbackView struct {
	Rating      int32     `json:"rating"`
	Comment     *string   `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type certificateView struct {
	IsIssued bool       `json:"isIssued"`
	URL      *string    `json:"url,omitempty"`
	Number   *string    `json:"number,omitempty"`
	IssuedAt *time.Time `json:"issuedAt,omitempty"`
}

type registrationView struct {
	ID           string           `json:"id"`
	EventID      string           `json:"eventId"`
	UserID       string           `json:"userId"`
	Status       string           `json:"status"`
	QRData       string           `json:"qrData,omitempty"`
	QRImage      string           `json:"qrImage,omitempty"`
	QRToken      string           `json:"qrToken,omitempty"`
	RegisteredAt time.Time        `json:"registeredAt"`
	CancelledAt  *time.Time       `json:"cancelledAt,omitempty"`
	Attendance   attendanceView   `json:"attendance"`
	Feedback     *feedbackView    `json:"feedback,omitempty"`
	Certificate  *certificateView `json:"certificate,omitempty"`
}

// newRegistrationView renders a registration; the QR credential is included
// only for its owner.
func newRegistrationView(reg model.Registration, withQR bool) registrationView {
	view := registrationView{
		ID:           reg.ID,
		EventID:      reg.EventID,
		UserID:       reg.UserID,
		Status:       string(reg.Status),
		RegisteredAt: reg.RegisteredAt,
		CancelledAt:  reg.CancelledAt,
		Attendance: attendanceView{
			IsMarked: reg.Attendance.IsMarked,
			Status:   string(reg.Attendance.Status),
			MarkedAt: reg.Attendance.MarkedAt,
		},
	}
	if withQR {
		view.QRData = reg.QRData
		view.QRImage = reg.QRImage
		view.QRToken = reg.QRSealed
	}
	for _, entry := range reg.Attendance.Logs {
		view.Attendance.Logs = append(view.Attendance.Logs, attendanceLogView{
			MarkedBy:  entry.MarkedBy,
			MarkedAt:  entry.MarkedAt,
			Status:    string(entry.Status),
			Latitude:  entry.Latitude,
			Longitude: entry.Longitude,
			Notes:     entry.Notes,
		})
	}
	if reg.Feedback != nil {
		view.Feedback = &feedbackView{Rating: reg.Feedback.Rating, Comment: reg.Feedback.Comment, SubmittedAt: reg.Feedback.SubmittedAt}
	}
	if reg.Certificate != nil {
		view.Certificate = &certificateView{
			IsIssued: reg.Certificate.IsIssued,
			URL:      reg.Certificate.URL,
			Number:   reg.Certificate.Number,
			IssuedAt: reg.Certificate.IssuedAt,
		}
	}
	return view
}

type attendeeView struct {
	registrationView
	FullName   string  `json:"fullName"`
	Email      string  `json:"email"`
	RollNumber *string `json:"rollNumber,omitempty"`
	Branch     *string `json:"branch,omitempty"`
}
