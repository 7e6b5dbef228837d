package movement

import (
	"context"
	"fmt"
	"strings"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/pkg/logger"
)

// Registry provides business operations for movement types.
// Posting code resolves codes through Resolve; administration goes
// through Create/Update/Delete which guard system types.
type Registry struct {
	repo Repository
}

// NewRegistry creates a movement type registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo}
}

// Resolve returns the movement type for a code.
// Unknown or soft-deleted codes map to UNKNOWN_MOVEMENT_TYPE.
func (r *Registry) Resolve(ctx context.Context, code string) (Type, error) {
	t, err := r.repo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if apperror.IsNotFound(err) {
			return Type{}, apperror.NewUnknownMovementType(code)
		}
		return Type{}, fmt.Errorf("resolve movement type %q: %w", code, err)
	}
	if t.DeletionMark {
		return Type{}, apperror.NewUnknownMovementType(code)
	}
	return t, nil
}

// List returns all movement types.
func (r *Registry) List(ctx context.Context) ([]Type, error) {
	return r.repo.List(ctx)
}

// Create registers a user-defined movement type.
func (r *Registry) Create(ctx context.Context, t *Type) error {
	t.Code = strings.ToUpper(strings.TrimSpace(t.Code))
	t.IsSystem = false

	if err := t.Validate(ctx); err != nil {
		return err
	}

	if _, err := r.repo.GetByCode(ctx, t.Code); err == nil {
		return apperror.NewDuplicate("movement type", "code", t.Code)
	} else if !apperror.IsNotFound(err) {
		return fmt.Errorf("check code uniqueness: %w", err)
	}

	if err := r.repo.Create(ctx, t); err != nil {
		return fmt.Errorf("create movement type: %w", err)
	}

	logger.Info(ctx, "movement type created", "code", t.Code, "direction", t.Direction)
	return nil
}

// Update modifies a user-defined movement type. Direction and code are
// frozen after creation; posted movements rely on them.
func (r *Registry) Update(ctx context.Context, t *Type) error {
	current, err := r.repo.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	if current.IsSystem {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "system movement types cannot be modified").
			WithDetail("code", current.Code)
	}
	if t.Code != current.Code {
		return apperror.NewValidation("movement type code cannot be changed").
			WithDetail("field", "code")
	}
	if t.Direction != current.Direction {
		return apperror.NewValidation("movement type direction cannot be changed").
			WithDetail("field", "direction")
	}

	if err := t.Validate(ctx); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, t); err != nil {
		return fmt.Errorf("update movement type: %w", err)
	}

	logger.Info(ctx, "movement type updated", "code", t.Code)
	return nil
}

// Delete soft-deletes a user-defined movement type.
func (r *Registry) Delete(ctx context.Context, typeID id.ID) error {
	current, err := r.repo.GetByID(ctx, typeID)
	if err != nil {
		return err
	}
	if current.IsSystem {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "system movement types cannot be deleted").
			WithDetail("code", current.Code)
	}

	if err := r.repo.Delete(ctx, typeID); err != nil {
		return fmt.Errorf("delete movement type: %w", err)
	}

	logger.Info(ctx, "movement type deleted", "code", current.Code)
	return nil
}

// EnsureSystemTypes creates any missing built-in types.
// Called from seed and on server startup; idempotent.
func (r *Registry) EnsureSystemTypes(ctx context.Context) error {
	for _, st := range SystemTypes() {
		_, err := r.repo.GetByCode(ctx, st.Code)
		if err == nil {
			continue
		}
		if !apperror.IsNotFound(err) {
			return fmt.Errorf("check system type %s: %w", st.Code, err)
		}
		t := st
		if err := r.repo.Create(ctx, &t); err != nil {
			return fmt.Errorf("seed system type %s: %w", st.Code, err)
		}
		logger.Info(ctx, "seeded system movement type", "code", st.Code)
	}
	return nil
}
