package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmregvm/core/api"
)

func TestFuel_DisabledNeverBreaks(t *testing.T) {
	f := NewFuel()
	require.False(t, f.Enabled)
	require.True(t, f.Consume(1<<40))
	require.Zero(t, f.Remaining(), "a disabled meter never tracks consumption")
}

func TestFuel_Monotonicity(t *testing.T) {
	f := NewFuel()
	f.Enabled = true
	f.SetRemaining(100)

	require.True(t, f.Consume(10))
	require.Equal(t, uint64(90), f.Remaining())

	require.True(t, f.Consume(90))
	require.Equal(t, uint64(0), f.Remaining())
}

func TestFuel_ExhaustionDoesNotUnderflow(t *testing.T) {
	f := NewFuel()
	f.Enabled = true
	f.SetRemaining(5)

	ok := f.Consume(6)
	require.False(t, ok)
	require.Equal(t, uint64(5), f.Remaining(), "a failed charge must not mutate remaining")
}

func TestFuel_ConsumeOrTrap(t *testing.T) {
	f := NewFuel()
	f.Enabled = true
	f.SetRemaining(1)

	require.Nil(t, f.ConsumeOrTrap(1))

	trap := f.ConsumeOrTrap(1)
	require.NotNil(t, trap)
	require.Equal(t, api.TrapOutOfFuel, trap.Code)
}
