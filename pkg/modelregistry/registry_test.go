package modelregistry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lookup(t *testing.T) {
	r := New(AutoModelID)

	t.Run("auto is always present and available", func(t *testing.T) {
		d, ok := r.Lookup(context.Background(), AutoModelID)
		require.True(t, ok)
		assert.True(t, d.Available)
		assert.Equal(t, AutoModelID, d.ID)
	})

	t.Run("known model resolves", func(t *testing.T) {
		d, ok := r.Lookup(context.Background(), "claude-sonnet")
		require.True(t, ok)
		assert.Equal(t, "Claude Sonnet", d.Name)
		assert.Equal(t, "anthropic", d.Provider)
	})

	t.Run("unknown model is rejected", func(t *testing.T) {
		_, ok := r.Lookup(context.Background(), "frobnicator")
		assert.False(t, ok)
	})
}

func TestRegistry_VendorHandle(t *testing.T) {
	r := New(AutoModelID)

	t.Run("auto maps to SDK choice", func(t *testing.T) {
		handle, auto := r.VendorHandle(AutoModelID)
		assert.True(t, auto)
		assert.Empty(t, handle)
	})

	t.Run("concrete model pins its vendor handle", func(t *testing.T) {
		handle, auto := r.VendorHandle("claude-opus")
		assert.False(t, auto)
		assert.Equal(t, "claude-opus-4-1", handle)
	})

	t.Run("unknown id falls back to auto behavior", func(t *testing.T) {
		handle, auto := r.VendorHandle("frobnicator")
		assert.True(t, auto)
		assert.Empty(t, handle)
	})
}

func TestRegistry_List(t *testing.T) {
	r := New(AutoModelID)
	descriptors := r.List(context.Background())

	assert.Len(t, descriptors, 3)
	var sawAuto bool
	for _, d := range descriptors {
		if d.ID == AutoModelID {
			sawAuto = true
			assert.True(t, d.Available)
		}
	}
	assert.True(t, sawAuto, "auto must always be present in List")
}

func TestRegistry_DefaultID(t *testing.T) {
	r := New("claude-sonnet")
	assert.Equal(t, "claude-sonnet", r.DefaultID())
}

func TestRegistry_ProbeUnavailableOnTimeout(t *testing.T) {
	r := &Registry{
		entries: []entry{
			{
				id:   "slow-model",
				name: "Slow Model",
				probe: func(ctx context.Context) bool {
					select {
					case <-time.After(probeTimeout * 10):
						return true
					case <-ctx.Done():
						return false
					}
				},
			},
		},
		def: "slow-model",
	}
	r.byID = map[string]entry{"slow-model": r.entries[0]}

	d, ok := r.Lookup(context.Background(), "slow-model")
	require.True(t, ok)
	assert.False(t, d.Available)
}

func TestRegistry_ProbePanicIsUnavailable(t *testing.T) {
	r := &Registry{
		entries: []entry{
			{
				id:    "flaky-model",
				name:  "Flaky Model",
				probe: func(ctx context.Context) bool { panic("boom") },
			},
		},
		def: "flaky-model",
	}
	r.byID = map[string]entry{"flaky-model": r.entries[0]}

	d, ok := r.Lookup(context.Background(), "flaky-model")
	require.True(t, ok)
	assert.False(t, d.Available)
}
