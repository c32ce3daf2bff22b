package health

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRunAll(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("github", func(context.Context) Status { return StatusOK })
	c.Register("agent", func(context.Context) Status { return StatusDegraded })

	results := c.RunAll(context.Background())
	assert.Equal(t, StatusOK, results["github"])
	assert.Equal(t, StatusDegraded, results["agent"])
}

func TestIsReady(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("github", func(context.Context) Status { return StatusOK })
	assert.True(t, c.IsReady(context.Background()))

	c.Register("agent", func(context.Context) Status { return StatusDown })
	assert.False(t, c.IsReady(context.Background()))
}

func TestIsReady_DegradedStillReady(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("cache", func(context.Context) Status { return StatusDegraded })
	assert.True(t, c.IsReady(context.Background()))
}

func TestSnapshot(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	assert.Empty(t, c.Snapshot())

	c.Register("github", func(context.Context) Status { return StatusOK })
	c.RunAll(context.Background())
	assert.Equal(t, StatusOK, c.Snapshot()["github"])
}
