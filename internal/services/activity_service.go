package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/Auditra/internal/core"
	"github.com/markdave123-py/Auditra/internal/logger"
	"github.com/markdave123-py/Auditra/internal/models"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

var nowUTC = func() time.Time { return time.Now().UTC() }

type ActivityService struct {
	db core.DbClient
}

func NewActivityService(db core.DbClient) *ActivityService {
	return &ActivityService{db: db}
}

// List returns the user's most recent activities, newest first.
func (s *ActivityService) List(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	switch {
	case limit <= 0:
		limit = defaultActivityLimit
	case limit > maxActivityLimit:
		limit = maxActivityLimit
	}
	return s.db.ListActivitiesByUser(ctx, userID, limit)
}

// recordActivity is best effort: the audit entry never fails the request that caused it.
func recordActivity(ctx context.Context, db core.DbClient, log *logger.Logger, a *models.Activity) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = nowUTC()
	}
	if err := db.CreateActivity(ctx, a); err != nil {
		log.Error("activity not recorded", "type", a.Type, "user_id", a.UserID, "error", err)
	}
}
