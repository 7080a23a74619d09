package filter

import (
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/rouse/pkg/instance"
)

func TestNew_EmptyRequirement(t *testing.T) {
	f, err := New(nil)
	require.ErrorIs(t, err, ErrNoTags)
	assert.Nil(t, f)

	_, err = New(instance.TagRequirement{})
	require.ErrorIs(t, err, ErrNoTags)
}

func TestMatches_ExactTag(t *testing.T) {
	f, err := New(instance.TagRequirement{{Key: "devcontainer", Value: "arm64.medium"}})
	require.NoError(t, err)

	assert.True(t, f.Matches(instance.Instance{ID: "i-1", Tags: map[string]string{"devcontainer": "arm64.medium"}}))
}

func TestMatches_ExtraTagsStillMatch(t *testing.T) {
	f, err := New(instance.TagRequirement{{Key: "env", Value: "dev"}})
	require.NoError(t, err)

	inst := instance.Instance{ID: "i-1", Tags: map[string]string{"env": "dev", "team": "platform", "Name": "box"}}
	assert.True(t, f.Matches(inst))
}

func TestMatches_DifferentValue(t *testing.T) {
	f, err := New(instance.TagRequirement{{Key: "env", Value: "dev"}})
	require.NoError(t, err)

	assert.False(t, f.Matches(instance.Instance{ID: "i-1", Tags: map[string]string{"env": "Dev"}}))
}

func TestMatches_MissingKey(t *testing.T) {
	f, err := New(instance.TagRequirement{{Key: "env", Value: ""}})
	require.NoError(t, err)

	// An absent key never matches, even against an empty required value
	assert.False(t, f.Matches(instance.Instance{ID: "i-1", Tags: map[string]string{"team": "platform"}}))
	assert.False(t, f.Matches(instance.Instance{ID: "i-2"}))
	assert.True(t, f.Matches(instance.Instance{ID: "i-3", Tags: map[string]string{"env": ""}}))
}

func TestMatches_MultipleRequired(t *testing.T) {
	f, err := New(instance.TagRequirement{
		{Key: "env", Value: "dev"},
		{Key: "team", Value: "platform"},
	})
	require.NoError(t, err)

	assert.True(t, f.Matches(instance.Instance{Tags: map[string]string{"env": "dev", "team": "platform"}}))
	assert.False(t, f.Matches(instance.Instance{Tags: map[string]string{"env": "dev"}}))
	assert.False(t, f.Matches(instance.Instance{Tags: map[string]string{"team": "platform"}}))
}

func TestApply_PreservesOrder(t *testing.T) {
	f, err := New(instance.TagRequirement{{Key: "env", Value: "dev"}})
	require.NoError(t, err)

	instances := []instance.Instance{
		{ID: "i-3", Tags: map[string]string{"env": "dev"}},
		{ID: "i-1", Tags: map[string]string{"env": "prod"}},
		{ID: "i-2", Tags: map[string]string{"env": "dev"}},
	}

	matched := f.Apply(instances)
	require.Len(t, matched, 2)
	assert.Equal(t, "i-3", matched[0].ID)
	assert.Equal(t, "i-2", matched[1].ID)
}

// tagCase is a random required tag set paired with a random instance tag set.
type tagCase struct {
	Required instance.TagRequirement
	Tags     map[string]string
}

// Generate draws keys and values from a small alphabet so overlaps are common.
func (tagCase) Generate(r *rand.Rand, _ int) reflect.Value {
	keys := []string{"a", "b", "c", "d"}
	values := []string{"1", "2", ""}

	tags := make(map[string]string)
	for _, k := range keys {
		if r.Intn(2) == 0 {
			tags[k] = values[r.Intn(len(values))]
		}
	}

	required := make(instance.TagRequirement, 1+r.Intn(3))
	for i := range required {
		required[i] = instance.Tag{Key: keys[r.Intn(len(keys))], Value: values[r.Intn(len(values))]}
	}

	return reflect.ValueOf(tagCase{Required: required, Tags: tags})
}

func TestMatches_SupersetProperty(t *testing.T) {
	property := func(c tagCase) bool {
		f, err := New(c.Required)
		if err != nil {
			return false
		}

		superset := true
		for _, tag := range c.Required {
			v, ok := c.Tags[tag.Key]
			if !ok || v != tag.Value {
				superset = false
				break
			}
		}

		return f.Matches(instance.Instance{ID: "i-1", Tags: c.Tags}) == superset
	}

	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 500}))
}
