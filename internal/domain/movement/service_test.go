package movement_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"kardex/internal/core/apperror"
	"kardex/internal/domain/ledger/ledgertest"
	"kardex/internal/domain/movement"
)

func TestSystemTypesCoverBothDirections(t *testing.T) {
	var in, out int
	for _, st := range movement.SystemTypes() {
		require.True(t, st.IsSystem)
		require.NoError(t, st.Validate(context.Background()), st.Code)
		switch st.Direction {
		case movement.DirectionIn:
			in++
		case movement.DirectionOut:
			out++
		}
	}
	require.Equal(t, 6, in)
	require.Equal(t, 5, out)
}

func TestResolveNormalizesCode(t *testing.T) {
	reg := movement.NewRegistry(ledgertest.NewTypeRepo())
	ctx := context.Background()

	mt, err := reg.Resolve(ctx, "  purchase_receipt ")
	require.NoError(t, err)
	require.Equal(t, movement.TypePurchaseReceipt, mt.Code)
	require.Equal(t, movement.DirectionIn, mt.Direction)
	require.True(t, mt.RequiresReference)

	_, err = reg.Resolve(ctx, "DOES_NOT_EXIST")
	require.True(t, apperror.IsCode(err, apperror.CodeUnknownMovementType))
}

func TestCreateCustomType(t *testing.T) {
	reg := movement.NewRegistry(ledgertest.NewTypeRepo())
	ctx := context.Background()

	custom := movement.NewType("sample_out", "Sample write-off", movement.DirectionOut)
	require.NoError(t, reg.Create(ctx, &custom))
	require.Equal(t, "SAMPLE_OUT", custom.Code)
	require.False(t, custom.IsSystem)

	dup := movement.NewType("SAMPLE_OUT", "Duplicate", movement.DirectionOut)
	err := reg.Create(ctx, &dup)
	require.True(t, apperror.IsCode(err, apperror.CodeDuplicate))

	bad := movement.NewType("BAD", "Bad direction", movement.Direction("SIDEWAYS"))
	err = reg.Create(ctx, &bad)
	require.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestSystemTypesAreImmutable(t *testing.T) {
	repo := ledgertest.NewTypeRepo()
	reg := movement.NewRegistry(repo)
	ctx := context.Background()

	mt, err := reg.Resolve(ctx, movement.TypeScrap)
	require.NoError(t, err)

	mt.Name = "renamed"
	err = reg.Update(ctx, &mt)
	require.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))

	err = reg.Delete(ctx, mt.ID)
	require.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))
}

func TestUpdateFreezesCodeAndDirection(t *testing.T) {
	reg := movement.NewRegistry(ledgertest.NewTypeRepo())
	ctx := context.Background()

	custom := movement.NewType("DEMO_IN", "Demo receipt", movement.DirectionIn)
	require.NoError(t, reg.Create(ctx, &custom))

	changed := custom
	changed.Direction = movement.DirectionOut
	changed.AffectsCost = false
	err := reg.Update(ctx, &changed)
	require.True(t, apperror.IsCode(err, apperror.CodeValidation))

	renamed := custom
	renamed.Name = "Demo receipt v2"
	require.NoError(t, reg.Update(ctx, &renamed))
}

func TestEnsureSystemTypesIsIdempotent(t *testing.T) {
	repo := ledgertest.NewTypeRepo()
	reg := movement.NewRegistry(repo)
	ctx := context.Background()

	require.NoError(t, reg.EnsureSystemTypes(ctx))
	require.NoError(t, reg.EnsureSystemTypes(ctx))

	list, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(movement.SystemTypes()))
}
