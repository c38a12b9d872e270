package dependency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/eventschema/fieldtype"
	"github.com/c360/eventschema/schema"
)

type staticMapper struct {
	name       string
	constants  []schema.Field
	dependents map[string][]schema.Field
}

func (m staticMapper) Name() string                             { return m.name }
func (m staticMapper) ConstantFields() []schema.Field            { return m.constants }
func (m staticMapper) DependentFields() map[string][]schema.Field { return m.dependents }

func TestBuild_AggregatesConstantsAndDependents(t *testing.T) {
	r, err := Build(staticMapper{
		name:      "geo",
		constants: []schema.Field{schema.NewField("_time", fieldtype.LONG)},
		dependents: map[string][]schema.Field{
			"user_id": {schema.NewField("country", fieldtype.STRING)},
		},
	})
	require.NoError(t, err)

	fields := r.ApplyConstants(nil)
	assert.Len(t, fields, 1)
	assert.Equal(t, "_time", fields[0].Name)

	withTrigger := []schema.Field{schema.NewField("user_id", fieldtype.STRING)}
	withDependents := r.ApplyDependents(withTrigger)
	assert.True(t, containsName(withDependents, "country"))
}

func TestBuild_ConflictingConstantTypesFail(t *testing.T) {
	_, err := Build(
		staticMapper{name: "a", constants: []schema.Field{schema.NewField("x", fieldtype.LONG)}},
		staticMapper{name: "b", constants: []schema.Field{schema.NewField("x", fieldtype.STRING)}},
	)
	assert.Error(t, err)
}

func TestApplyConstants_NoOpOnMatchingType(t *testing.T) {
	r, err := Build(staticMapper{
		name:      "m",
		constants: []schema.Field{schema.NewField("x", fieldtype.LONG)},
	})
	require.NoError(t, err)

	fields := []schema.Field{schema.NewField("x", fieldtype.LONG)}
	out := r.ApplyConstants(fields)
	assert.Len(t, out, 1)
}

func TestApplyConstants_ReplacesOnTypeMismatch(t *testing.T) {
	r, err := Build(staticMapper{
		name:      "m",
		constants: []schema.Field{schema.NewField("x", fieldtype.LONG)},
	})
	require.NoError(t, err)

	fields := []schema.Field{schema.NewField("x", fieldtype.STRING)}
	out := r.ApplyConstants(fields)
	require.Len(t, out, 1)
	assert.Equal(t, fieldtype.LONG, out[0].Type)
}

func TestApplyDependents_SkipsWhenTriggerAbsent(t *testing.T) {
	r, err := Build(staticMapper{
		name: "m",
		dependents: map[string][]schema.Field{
			"user_id": {schema.NewField("country", fieldtype.STRING)},
		},
	})
	require.NoError(t, err)

	fields := []schema.Field{schema.NewField("other", fieldtype.STRING)}
	out := r.ApplyDependents(fields)
	assert.False(t, containsName(out, "country"))
}

func TestEmpty(t *testing.T) {
	r := Empty()
	fields := r.ApplyConstants([]schema.Field{schema.NewField("x", fieldtype.LONG)})
	fields = r.ApplyDependents(fields)
	assert.Len(t, fields, 1)
}
