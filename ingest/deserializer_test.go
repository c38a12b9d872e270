package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/eventschema/dependency"
	"github.com/c360/eventschema/errors"
	"github.com/c360/eventschema/fieldtype"
	"github.com/c360/eventschema/metastore/memstore"
	"github.com/c360/eventschema/schema"
	"github.com/c360/eventschema/schemacache"
)

func newTestDeserializer(t *testing.T, registry *dependency.Registry) (*Deserializer, *memstore.Store) {
	store := memstore.New()
	require.NoError(t, store.CreateProject(context.Background(), "p"))
	if registry == nil {
		registry = dependency.Empty()
	}
	d := New(store, schemacache.New(), registry, nil, nil, nil)
	return d, store
}

func TestDeserialize_HeaderBeforeProperties(t *testing.T) {
	d, _ := newTestDeserializer(t, nil)

	ev, err := d.Deserialize(context.Background(), []byte(`{"project":"p","collection":"C1","properties":{"x":1,"y":"hi"}}`))
	require.NoError(t, err)
	assert.Equal(t, "p", ev.Project)
	assert.Equal(t, "c1", ev.Collection)
	assert.Equal(t, int64(1), ev.Record.Get("x"))
	assert.Equal(t, "hi", ev.Record.Get("y"))
}

func TestDeserialize_PropertiesFirstRewind(t *testing.T) {
	d, _ := newTestDeserializer(t, nil)

	ev, err := d.Deserialize(context.Background(), []byte(`{"properties":{"a":true},"project":"p","collection":"c1"}`))
	require.NoError(t, err)
	assert.Equal(t, true, ev.Record.Get("a"))
}

func TestDeserialize_SchemaExtensionPreservesPositions(t *testing.T) {
	d, _ := newTestDeserializer(t, nil)
	ctx := context.Background()

	_, err := d.Deserialize(ctx, []byte(`{"project":"p","collection":"c1","properties":{"x":1,"y":"hi"}}`))
	require.NoError(t, err)

	ev, err := d.Deserialize(ctx, []byte(`{"project":"p","collection":"c1","properties":{"z":2.5}}`))
	require.NoError(t, err)

	assert.Equal(t, 0, ev.Schema().IndexOf("x"))
	assert.Equal(t, 1, ev.Schema().IndexOf("y"))
	assert.Equal(t, 2, ev.Schema().IndexOf("z"))
	assert.Nil(t, ev.Record.Get("x"))
	assert.Nil(t, ev.Record.Get("y"))
	assert.Equal(t, 2.5, ev.Record.Get("z"))
}

func TestDeserialize_TypeDriftDropsColumnWithoutSchemaChange(t *testing.T) {
	d, store := newTestDeserializer(t, nil)
	ctx := context.Background()

	_, err := d.Deserialize(ctx, []byte(`{"project":"p","collection":"c1","properties":{"x":1,"y":"hi"}}`))
	require.NoError(t, err)
	before, _, err := store.GetCollection(ctx, "p", "c1")
	require.NoError(t, err)

	ev, err := d.Deserialize(ctx, []byte(`{"project":"p","collection":"c1","properties":{"x":"oops"}}`))
	require.NoError(t, err)
	assert.Nil(t, ev.Record.Get("x"))

	after, _, err := store.GetCollection(ctx, "p", "c1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDeserialize_DependentFieldActivation(t *testing.T) {
	registry, err := dependency.Build(staticMapper{
		dependents: map[string][]schema.Field{
			"user_id": {schema.NewField("country", fieldtype.STRING)},
		},
	})
	require.NoError(t, err)

	d, _ := newTestDeserializer(t, registry)
	ev, err := d.Deserialize(context.Background(), []byte(`{"project":"p","collection":"c1","properties":{"user_id":"u1"}}`))
	require.NoError(t, err)

	assert.True(t, ev.Schema().Has("user_id"))
	assert.True(t, ev.Schema().Has("country"))
}

func TestDeserialize_MalformedMissingProperties(t *testing.T) {
	d, _ := newTestDeserializer(t, nil)
	_, err := d.Deserialize(context.Background(), []byte(`{"project":"p","collection":"c1"}`))
	assert.ErrorIs(t, err, errors.ErrMalformedEvent)
}

func TestDeserialize_MalformedMissingProjectAndCollection(t *testing.T) {
	d, _ := newTestDeserializer(t, nil)
	_, err := d.Deserialize(context.Background(), []byte(`{"properties":{"x":1}}`))
	assert.ErrorIs(t, err, errors.ErrMalformedEvent)
}

func TestDeserialize_NestedObjectRejected(t *testing.T) {
	d, _ := newTestDeserializer(t, nil)
	_, err := d.Deserialize(context.Background(), []byte(`{"project":"p","collection":"c1","properties":{"x":{"nested":1}}}`))
	assert.ErrorIs(t, err, errors.ErrNestedNotSupported)
}

func TestDeserialize_ArrayOfArrayRejected(t *testing.T) {
	d, _ := newTestDeserializer(t, nil)
	_, err := d.Deserialize(context.Background(), []byte(`{"project":"p","collection":"c1","properties":{"x":[["a"]]}}`))
	assert.ErrorIs(t, err, errors.ErrNestedNotSupported)
}

func TestDeserialize_ColdPathArray(t *testing.T) {
	d, _ := newTestDeserializer(t, nil)
	ev, err := d.Deserialize(context.Background(), []byte(`{"project":"p","collection":"newcol","properties":{"tags":["a","b"]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ev.Record.Get("tags"))
}

func TestDeserialize_DuplicateProperties(t *testing.T) {
	d, _ := newTestDeserializer(t, nil)
	_, err := d.Deserialize(context.Background(), []byte(`{"project":"p","collection":"c1","properties":{"x":1},"properties":{"y":2}}`))
	assert.ErrorIs(t, err, errors.ErrMalformedEvent)
}

func TestDeserialize_BooleanColumnRejectsLiteralAcceptsString(t *testing.T) {
	d, _ := newTestDeserializer(t, nil)
	ctx := context.Background()

	_, err := d.Deserialize(ctx, []byte(`{"project":"p","collection":"c1","properties":{"flag":true}}`))
	require.NoError(t, err)

	ev, err := d.Deserialize(ctx, []byte(`{"project":"p","collection":"c1","properties":{"flag":true}}`))
	require.NoError(t, err)
	assert.Nil(t, ev.Record.Get("flag"), "a JSON boolean literal against an already-declared BOOLEAN column must be dropped, not decoded")

	ev, err = d.Deserialize(ctx, []byte(`{"project":"p","collection":"c1","properties":{"flag":"false"}}`))
	require.NoError(t, err)
	assert.Equal(t, false, ev.Record.Get("flag"), "a string token against an already-declared BOOLEAN column must still decode")
}

func TestDeserialize_ProvisionsProjectLazily(t *testing.T) {
	store := memstore.New()
	d := New(store, schemacache.New(), dependency.Empty(), nil, nil, nil)

	ev, err := d.Deserialize(context.Background(), []byte(`{"project":"newproject","collection":"c1","properties":{"x":1}}`))
	require.NoError(t, err)
	assert.Equal(t, "newproject", ev.Project)
}

type staticMapper struct {
	dependents map[string][]schema.Field
}

func (m staticMapper) Name() string                              { return "test" }
func (m staticMapper) ConstantFields() []schema.Field             { return nil }
func (m staticMapper) DependentFields() map[string][]schema.Field { return m.dependents }
