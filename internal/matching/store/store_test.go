package store

import (
	"testing"

	"github.com/Aidin1998/ratiomatch/internal/matching/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AllocateIDStartsAtFirstOrderID(t *testing.T) {
	s := New()
	assert.Equal(t, model.FirstOrderID, s.AllocateID())
	assert.Equal(t, model.FirstOrderID+1, s.AllocateID())
}

func TestStore_PutGetRemoveLifecycle(t *testing.T) {
	s := New()
	id := s.AllocateID()
	o := &model.Order{ID: id}
	s.Put(o)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Same(t, o, got)
	assert.True(t, s.IsActive(id))

	s.SetActive(id, false)
	assert.False(t, s.IsActive(id))
	_, err = s.Get(id)
	assert.Error(t, err)

	raw, ok := s.GetRaw(id)
	assert.True(t, ok)
	assert.Same(t, o, raw)

	s.Remove(id)
	_, ok = s.GetRaw(id)
	assert.False(t, ok)
}
