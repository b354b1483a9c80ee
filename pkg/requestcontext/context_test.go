package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessors(t *testing.T) {
	ctx := context.Background()

	t.Run("zero values when unset", func(t *testing.T) {
		assert.Empty(t, RequestID(ctx))
		assert.Empty(t, Operator(ctx))
		assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
	})

	t.Run("injected values round trip", func(t *testing.T) {
		fixed := time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC)
		c := WithTime(WithOperator(WithRequestID(ctx, "req-1"), "mesa-3"), fixed)
		assert.Equal(t, "req-1", RequestID(c))
		assert.Equal(t, "mesa-3", Operator(c))
		assert.Equal(t, fixed, Now(c))
	})
}
