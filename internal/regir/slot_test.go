package regir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlot_ConstRoundTrip(t *testing.T) {
	for i := 0; i < 10; i++ {
		s := FromConstIndex(i)
		require.True(t, s.IsConst())
		require.Equal(t, i, s.ConstIndex())
	}
}

func TestSlot_LiveSlotIsNotConst(t *testing.T) {
	s := Slot(5)
	require.False(t, s.IsConst())
	require.Equal(t, Slot(6), s.Next())
}

func TestNewSlotSpan_PanicsOnConstHead(t *testing.T) {
	require.Panics(t, func() {
		NewSlotSpan(FromConstIndex(0), 1)
	})
}

func TestNewSlotSpan_LiveHead(t *testing.T) {
	span := NewSlotSpan(Slot(3), 4)
	require.Equal(t, Slot(3), span.Head)
	require.Equal(t, Slot(7), span.End())
	require.False(t, span.IsEmpty())
	require.Equal(t, []Slot{3, 4, 5, 6}, span.Slots())
}

func TestSlotSpan_Iter(t *testing.T) {
	span := NewSlotSpan(Slot(10), 3)
	var seen []Slot
	span.Iter(func(s Slot) { seen = append(seen, s) })
	require.Equal(t, []Slot{10, 11, 12}, seen)
}

func TestSlotSpan_Empty(t *testing.T) {
	span := NewSlotSpan(Slot(0), 0)
	require.True(t, span.IsEmpty())
	require.Empty(t, span.Slots())
}
