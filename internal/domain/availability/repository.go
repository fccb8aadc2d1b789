package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medpoint/scheduling/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, r *Rule) error

	// GetByID returns ErrRuleNotFound for unknown or soft-deleted rules.
	GetByID(ctx context.Context, id uuid.UUID) (*Rule, error)

	// Update applies a partial update and returns the stored result.
	Update(ctx context.Context, id uuid.UUID, cmd *UpdateRuleCommand) (*Rule, error)

	// Deactivate flips is_available off; rules are never hard-deleted.
	Deactivate(ctx context.Context, id uuid.UUID) error

	// FindOverlapping returns the active rules for (doctorID, day) whose
	// [timeFrom, timeTo) window intersects the given one. excludeID skips the
	// rule being edited so no-op and shrinking updates pass.
	FindOverlapping(ctx context.Context, doctorID uuid.UUID, day domain.Weekday, timeFrom, timeTo time.Time, excludeID *uuid.UUID) ([]*Rule, error)

	// FindActiveByDoctor returns every is_available rule for one doctor.
	FindActiveByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Rule, error)

	// DoctorIDsWithActiveRules lists the doctors a full generation run covers.
	DoctorIDsWithActiveRules(ctx context.Context) ([]uuid.UUID, error)

	List(ctx context.Context, q *ListRulesQuery) (*PagedRules, error)
}
