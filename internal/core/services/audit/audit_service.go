package audit

import (
	"context"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
)

// actorKey is the context key under which handlers stash the acting operator.
type actorKey struct{}

// WithActor returns a ctx carrying the operator identity for audit entries.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

type AuditService struct {
	repo ports.AuditRepository
}

func NewAuditService(repo ports.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Log records an operator or system action. The acting identity is taken
// from ctx when present, defaulting to "system".
func (s *AuditService) Log(ctx context.Context, action domain.AuditAction, target, details string) error {
	actor := "system"
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		actor = a
	}

	entry, err := domain.NewAuditLog(actor, action, target, details)
	if err != nil {
		return err
	}
	return s.repo.SaveAuditLog(ctx, *entry)
}

func (s *AuditService) GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, limit)
}

var _ ports.AuditService = (*AuditService)(nil)
