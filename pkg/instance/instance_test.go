package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyState(t *testing.T) {
	tests := []struct {
		raw  string
		want PowerState
	}{
		{"pending", StatePending},
		{"running", StateRunning},
		{"shutting-down", StateShuttingDown},
		{"terminated", StateTerminated},
		{"stopping", StateStopping},
		{"stopped", StateStopped},
		{"rebooting", StateUnknown},
		{"Running", StateUnknown},
		{"", StateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyState(tt.raw))
		})
	}
}

func TestNewView(t *testing.T) {
	v, ok := NewView(Instance{ID: "i-123", RawState: "running", PublicIP: "203.0.113.5"})
	assert.True(t, ok)
	assert.Equal(t, View{ID: "i-123", State: StateRunning, PublicIP: "203.0.113.5"}, v)
}

func TestNewView_SkipsIncompleteRecords(t *testing.T) {
	_, ok := NewView(Instance{RawState: "running"})
	assert.False(t, ok)

	_, ok = NewView(Instance{ID: "i-123"})
	assert.False(t, ok)
}
