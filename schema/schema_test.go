package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/eventschema/errors"
	"github.com/c360/eventschema/fieldtype"
)

func TestSchema_IndexOfAndField(t *testing.T) {
	s := New(NewField("x", fieldtype.LONG), NewField("y", fieldtype.STRING))

	assert.Equal(t, 0, s.IndexOf("x"))
	assert.Equal(t, 1, s.IndexOf("y"))
	assert.Equal(t, -1, s.IndexOf("z"))

	f, ok := s.Field("y")
	require.True(t, ok)
	assert.Equal(t, fieldtype.STRING, f.Type)
}

func TestMerge_AppendsNewFieldsPreservingPositions(t *testing.T) {
	s := New(NewField("x", fieldtype.LONG), NewField("y", fieldtype.STRING))

	merged, err := Merge(s, []Field{NewField("z", fieldtype.DOUBLE)})
	require.NoError(t, err)

	require.Len(t, merged.Fields, 3)
	assert.Equal(t, "x", merged.Fields[0].Name)
	assert.Equal(t, "y", merged.Fields[1].Name)
	assert.Equal(t, "z", merged.Fields[2].Name)
}

func TestMerge_MatchingTypeIsNoOp(t *testing.T) {
	s := New(NewField("x", fieldtype.LONG))

	merged, err := Merge(s, []Field{NewField("x", fieldtype.LONG)})
	require.NoError(t, err)
	assert.Len(t, merged.Fields, 1)
}

func TestMerge_TypeConflictFails(t *testing.T) {
	s := New(NewField("x", fieldtype.LONG))

	_, err := Merge(s, []Field{NewField("x", fieldtype.STRING)})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTypeConflict)
}

func TestMerge_DoesNotMutateOriginal(t *testing.T) {
	s := New(NewField("x", fieldtype.LONG))
	_, err := Merge(s, []Field{NewField("z", fieldtype.DOUBLE)})
	require.NoError(t, err)
	assert.Len(t, s.Fields, 1)
}

func TestRecord_SetGet(t *testing.T) {
	s := New(NewField("x", fieldtype.LONG), NewField("y", fieldtype.STRING))
	r := NewRecord(s)

	r.Set("x", int64(42))
	assert.Equal(t, int64(42), r.Get("x"))
	assert.Nil(t, r.Get("y"))
	assert.Nil(t, r.Get("nonexistent"))
}

func TestRecord_Rebind(t *testing.T) {
	s := New(NewField("x", fieldtype.LONG))
	r := NewRecord(s)
	r.Set("x", int64(1))

	target := New(NewField("x", fieldtype.LONG), NewField("y", fieldtype.STRING))
	rebound := r.Rebind(target)

	assert.Equal(t, int64(1), rebound.Get("x"))
	assert.Nil(t, rebound.Get("y"))
	assert.Equal(t, target, rebound.Schema())
}
