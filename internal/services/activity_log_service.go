package services

import (
	"context"
	"log"

	"dress-rental/internal/apperr"
	"dress-rental/internal/auth"
	"dress-rental/internal/models"
)

// ActivityRecorder writes audit entries. Recording never fails the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, action, table string, recordID int, details string)
}

type ActivityLogStore interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, limit int) ([]*models.ActivityLog, error)
	ListByUser(ctx context.Context, userID, limit int) ([]*models.ActivityLog, error)
}

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

type ActivityLogService struct {
	Repo ActivityLogStore
}

func NewActivityLogService(repo ActivityLogStore) *ActivityLogService {
	return &ActivityLogService{Repo: repo}
}

// Record attributes the entry to the session in ctx. Failures are logged only.
func (s *ActivityLogService) Record(ctx context.Context, action, table string, recordID int, details string) {
	entry := &models.ActivityLog{
		UserID:    auth.ActorID(ctx),
		Action:    action,
		TableName: table,
		Details:   details,
	}
	if recordID > 0 {
		id := recordID
		entry.RecordID = &id
	}
	if err := s.Repo.Create(ctx, entry); err != nil {
		log.Printf("[Activity] failed to record %s on %s/%d: %v", action, table, recordID, err)
	}
}

func (s *ActivityLogService) List(ctx context.Context, limit int) ([]*models.ActivityLog, error) {
	logs, err := s.Repo.List(ctx, clampLimit(limit))
	return logs, apperr.Persistence("list activity logs", err)
}

func (s *ActivityLogService) ListByUser(ctx context.Context, userID, limit int) ([]*models.ActivityLog, error) {
	logs, err := s.Repo.ListByUser(ctx, userID, clampLimit(limit))
	return logs, apperr.Persistence("list activity logs", err)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLogLimit
	}
	if limit > maxLogLimit {
		return maxLogLimit
	}
	return limit
}

// nopRecorder is used when no activity log is wired
type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, string, int, string) {}
