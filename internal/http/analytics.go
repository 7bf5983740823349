package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"campusevents/internal/logger"
	"campusevents/internal/operations"
)

func eventAnalyticsKey(eventID string) string {
	return "campus-events:analytics:event:" + eventID
}

func clubAnalyticsKey(clubID string) string {
	return "campus-events:analytics:club:" + clubID
}

func (s *Server) handleEventAnalytics(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	event, err := s.ops.AuthorizeEvent(r.Context(), actor, chi.URLParam(r, "eventID"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	analytics, err := s.cachedAnalytics(r.Context(), eventAnalyticsKey(event.ID), func(ctx context.Context) (operations.Analytics, error) {
		return s.ops.EventCounts(ctx, event.ID)
	})
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"eventId":   event.ID,
		"title":     event.Title,
		"analytics": analytics,
	})
}

func (s *Server) handleClubAnalytics(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	club, err := s.ops.AuthorizeClub(r.Context(), actor, chi.URLParam(r, "clubID"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	analytics, err := s.cachedAnalytics(r.Context(), clubAnalyticsKey(club.ID), func(ctx context.Context) (operations.Analytics, error) {
		return s.ops.ClubCounts(ctx, club.ID)
	})
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"clubId":    club.ID,
		"name":      club.Name,
		"analytics": analytics,
	})
}

// cachedAnalytics serves key from redis when configured and fills it on a
// miss. Cache failures fall through to compute.
func (s *Server) cachedAnalytics(ctx context.Context, key string, compute func(context.Context) (operations.Analytics, error)) (operations.Analytics, error) {
	if s.redis == nil {
		return compute(ctx)
	}

	value, err := s.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var analytics operations.Analytics
		if jsonErr := json.Unmarshal(value, &analytics); jsonErr == nil {
			analyticsCacheTotal.WithLabelValues("hit").Inc()
			return analytics, nil
		}
	case !errors.Is(err, redis.Nil):
		s.log.Warn("analytics cache read failed", zap.String("key", key), zap.Error(err))
	}
	analyticsCacheTotal.WithLabelValues("miss").Inc()

	analytics, err := compute(ctx)
	if err != nil {
		return analytics, err
	}
	data, err := json.Marshal(analytics)
	if err == nil {
		err = s.redis.Set(ctx, key, data, s.cfg.AnalyticsCacheTTL).Err()
	}
	if err != nil {
		s.log.Warn("analytics cache write failed", zap.String("key", key), zap.Error(err))
	}
	return analytics, nil
}

// invalidateEventAnalytics drops the cached analytics of the event and of
// its club.
func (s *Server) invalidateEventAnalytics(ctx context.Context, eventID string) {
	if s.redis == nil {
		return
	}
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		s.log.Warn("analytics cache invalidation skipped", zap.String(logger.FieldEventID, eventID), zap.Error(err))
		_ = s.redis.Del(ctx, eventAnalyticsKey(eventID)).Err()
		return
	}
	s.invalidateAnalytics(ctx, event.ID, event.ClubID)
}

func (s *Server) invalidateAnalytics(ctx context.Context, eventID, clubID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, eventAnalyticsKey(eventID), clubAnalyticsKey(clubID)).Err(); err != nil {
		s.log.Warn("analytics cache invalidation failed", zap.String(logger.FieldEventID, eventID), zap.Error(err))
	}
}
