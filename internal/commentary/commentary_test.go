package commentary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/scratch-race-backend/internal/engine"
)

func TestCannedPrefersTheWinner(t *testing.T) {
	c := NewCanned(1)
	line, err := c.Comment(context.Background(), engine.State{}, []engine.Event{
		{Type: engine.EvtDiceRolled, Horse: 7},
		{Type: engine.EvtHorseMoved, Horse: 7, Position: 12},
		{Type: engine.EvtRaceWon, Horse: 7},
	})
	require.NoError(t, err)
	assert.Contains(t, line, "7")
	assert.NotContains(t, line, "12")
}

func TestCannedQuietWithoutNews(t *testing.T) {
	line, err := NewCanned(1).Comment(context.Background(), engine.State{}, []engine.Event{{Type: engine.EvtPlayerReady}})
	require.NoError(t, err)
	assert.Empty(t, line)
}

func TestCannedHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCanned(1).Comment(ctx, engine.State{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
