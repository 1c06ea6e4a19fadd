// api/audit/service.go
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service is the audit collaborator consumed by the decision core. It
// appends entries and answers the history questions the anomaly guard
// asks (recent access counts, known login addresses).
type Service interface {
	Record(ctx context.Context, entry Entry) error
	RecordBatch(ctx context.Context, entries []Entry) error
	CountAccessEvents(ctx context.Context, subjectID string, actions []string, window time.Duration) (int64, error)
	KnownLoginIPs(ctx context.Context, subjectID string, window time.Duration) ([]string, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	return s.repo.Index(ctx, entry)
}

func (s *service) RecordBatch(ctx context.Context, entries []Entry) error {
	for i := range entries {
		if err := s.Record(ctx, entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) CountAccessEvents(ctx context.Context, subjectID string, actions []string, window time.Duration) (int64, error) {
	return s.repo.CountActions(ctx, subjectID, actions, time.Now().Add(-window))
}

func (s *service) KnownLoginIPs(ctx context.Context, subjectID string, window time.Duration) ([]string, error) {
	return s.repo.DistinctIPs(ctx, subjectID, "login", time.Now().Add(-window))
}
