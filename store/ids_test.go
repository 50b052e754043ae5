package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_ForeignHandleRejected(t *testing.T) {
	s1 := NewStore()
	s2 := NewStore()

	h := s1.AllocGlobal(0, 42, false)

	require.NotPanics(t, func() { s1.Global(h) })
	require.PanicsWithError(t, ErrForeignStoreHandle.Error(), func() { s2.Global(h) })
}

func TestStore_HandleCheckStoreDirectly(t *testing.T) {
	s1 := NewStore()
	s2 := NewStore()
	h := s1.AllocGlobal(0, 0, false)

	require.NoError(t, h.handle.checkStore(s1))
	require.True(t, errors.Is(h.handle.checkStore(s2), ErrForeignStoreHandle))
}
