package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/eventschema/errors"
	"github.com/c360/eventschema/fieldtype"
	"github.com/c360/eventschema/metastore"
	"github.com/c360/eventschema/schema"
)

func TestStore_CreateOrGetCollectionField_ProjectNotExists(t *testing.T) {
	s := New()
	_, err := s.CreateOrGetCollectionField(context.Background(), "p", "c1", nil, nil)
	assert.ErrorIs(t, err, errors.ErrProjectNotExists)
}

func TestStore_CreateOrGetCollectionField_FiresOnCreateOnce(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateProject(context.Background(), "p"))

	var created []metastore.ProjectCollection
	onCreate := func(_ context.Context, pc metastore.ProjectCollection) {
		created = append(created, pc)
	}

	_, err := s.CreateOrGetCollectionField(context.Background(), "p", "c1",
		[]schema.Field{schema.NewField("x", fieldtype.LONG)}, onCreate)
	require.NoError(t, err)

	_, err = s.CreateOrGetCollectionField(context.Background(), "p", "c1",
		[]schema.Field{schema.NewField("y", fieldtype.STRING)}, onCreate)
	require.NoError(t, err)

	assert.Len(t, created, 1)
	assert.Equal(t, metastore.ProjectCollection{Project: "p", Collection: "c1"}, created[0])
}

func TestStore_CreateOrGetCollectionField_UnionSemantics(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateProject(context.Background(), "p"))

	_, err := s.CreateOrGetCollectionField(context.Background(), "p", "c1",
		[]schema.Field{schema.NewField("x", fieldtype.LONG)}, nil)
	require.NoError(t, err)

	merged, err := s.CreateOrGetCollectionField(context.Background(), "p", "c1",
		[]schema.Field{schema.NewField("y", fieldtype.STRING)}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, merged.IndexOf("x"))
	assert.Equal(t, 1, merged.IndexOf("y"))
}

func TestStore_CreateOrGetCollectionField_TypeConflict(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateProject(context.Background(), "p"))

	_, err := s.CreateOrGetCollectionField(context.Background(), "p", "c1",
		[]schema.Field{schema.NewField("x", fieldtype.LONG)}, nil)
	require.NoError(t, err)

	_, err = s.CreateOrGetCollectionField(context.Background(), "p", "c1",
		[]schema.Field{schema.NewField("x", fieldtype.STRING)}, nil)
	assert.ErrorIs(t, err, errors.ErrTypeConflict)
}

func TestStore_GetAllCollections(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateProject(context.Background(), "p1"))
	require.NoError(t, s.CreateProject(context.Background(), "p2"))

	_, err := s.CreateOrGetCollectionField(context.Background(), "p1", "c1",
		[]schema.Field{schema.NewField("x", fieldtype.LONG)}, nil)
	require.NoError(t, err)

	all, err := s.GetAllCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, all["p1"])
	assert.Empty(t, all["p2"])
}
