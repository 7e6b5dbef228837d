package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kardex/internal/core/types"
)

func TestRoundQuantity(t *testing.T) {
	q := types.MustQuantity("1").Div(types.MustQuantity("3"))
	rounded := types.RoundQuantity(q)
	require.True(t, rounded.Equal(types.MustQuantity("0.333333")), "got %s", rounded)
}

func TestRoundMoney(t *testing.T) {
	// (100*2 + 50*5) / 150 keeps repeating digits until rounded
	total := types.MustMoney("450")
	avg := types.RoundMoney(total.Div(types.MustQuantity("150")))
	require.True(t, avg.Equal(types.MustMoney("3")), "got %s", avg)

	odd := types.MustMoney("10").Div(types.MustMoney("3"))
	require.True(t, types.RoundMoney(odd).Equal(types.MustMoney("3.3333")))
}

func TestMustQuantityPanicsOnGarbage(t *testing.T) {
	require.Panics(t, func() { types.MustQuantity("not-a-number") })
}
