package transform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a-delannoy/yaani/internal/render"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("hooks apply in declared order", func(t *testing.T) {
		r := NewRegistry()
		var order []string
		r.Register("first", func(ctx context.Context, inv *render.Inventory) error {
			order = append(order, "first")
			return nil
		})
		r.Register("second", func(ctx context.Context, inv *render.Inventory) error {
			order = append(order, "second")
			return nil
		})

		inv := render.NewInventory()
		require.NoError(t, r.Apply(ctx, []string{"second", "first"}, inv))
		assert.Equal(t, []string{"second", "first"}, order)
	})

	t.Run("hooks mutate the inventory", func(t *testing.T) {
		r := NewRegistry()
		r.Register("tag", func(ctx context.Context, inv *render.Inventory) error {
			for _, vars := range inv.HostVars {
				vars["managed"] = true
			}
			return nil
		})

		inv := render.NewInventory()
		inv.AddHost("r1", map[string]any{"tenant": "t1"})
		require.NoError(t, r.Apply(ctx, []string{"tag"}, inv))
		assert.Equal(t, true, inv.HostVars["r1"]["managed"])
	})

	t.Run("failure aborts the chain", func(t *testing.T) {
		r := NewRegistry()
		boom := errors.New("boom")
		var secondRan bool
		r.Register("failing", func(ctx context.Context, inv *render.Inventory) error {
			return boom
		})
		r.Register("after", func(ctx context.Context, inv *render.Inventory) error {
			secondRan = true
			return nil
		})

		err := r.Apply(ctx, []string{"failing", "after"}, render.NewInventory())
		var hookErr *HookError
		require.ErrorAs(t, err, &hookErr)
		assert.Equal(t, "failing", hookErr.Name)
		assert.ErrorIs(t, err, boom)
		assert.False(t, secondRan)
	})

	t.Run("resolve rejects unknown names", func(t *testing.T) {
		r := NewRegistry()
		r.Register("known", func(ctx context.Context, inv *render.Inventory) error { return nil })

		assert.NoError(t, r.Resolve([]string{"known"}))
		err := r.Resolve([]string{"known", "unknown"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"unknown"`)
	})

	t.Run("duplicate registration panics", func(t *testing.T) {
		r := NewRegistry()
		r.Register("dup", func(ctx context.Context, inv *render.Inventory) error { return nil })
		assert.Panics(t, func() {
			r.Register("dup", func(ctx context.Context, inv *render.Inventory) error { return nil })
		})
	})
}
