// Package filter selects instances by required tags.
package filter

import (
	"errors"

	"github.com/yairfalse/rouse/pkg/instance"
)

// ErrNoTags is returned when a filter is built without any required tags.
var ErrNoTags = errors.New("at least one tag is required")

// Filter keeps instances that carry every required tag.
type Filter struct {
	required instance.TagRequirement
}

// New creates a Filter for the given requirement.
func New(required instance.TagRequirement) (*Filter, error) {
	if len(required) == 0 {
		return nil, ErrNoTags
	}
	return &Filter{required: required}, nil
}

// Matches returns true if the instance has every required key with the
// exact required value. Extra tags are ignored.
func (f *Filter) Matches(inst instance.Instance) bool {
	for _, tag := range f.required {
		v, ok := inst.Tags[tag.Key]
		if !ok || v != tag.Value {
			return false
		}
	}
	return true
}

// Apply returns the matching instances in inventory order.
func (f *Filter) Apply(instances []instance.Instance) []instance.Instance {
	matched := make([]instance.Instance, 0, len(instances))
	for _, inst := range instances {
		if f.Matches(inst) {
			matched = append(matched, inst)
		}
	}
	return matched
}

// Required returns the tags this filter was built with.
func (f *Filter) Required() instance.TagRequirement {
	return f.required
}
