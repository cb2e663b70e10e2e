package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "chatbridge/internal/errors"
	"chatbridge/internal/model"
)

func TestManager_CreateGetDelete(t *testing.T) {
	m := NewManager()

	conv := m.Create()
	require.NotEmpty(t, conv.ID)
	assert.Equal(t, StateIdle, conv.State())

	got, err := m.Get(conv.ID)
	require.NoError(t, err)
	assert.Same(t, conv, got)

	assert.Len(t, m.List(), 1)

	require.NoError(t, m.Delete(conv.ID))
	_, err = m.Get(conv.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, m.Delete(conv.ID), apperrors.ErrNotFound)
}

func TestConversation_SingleInFlight(t *testing.T) {
	m := NewManager()
	conv := m.Create()

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := conv.Begin("first", cancel)
	require.NoError(t, err)
	assert.Equal(t, StateAwaiting, conv.State())

	// While a request is outstanding, a second submission is rejected.
	_, err = conv.Begin("second", func() {})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// The same holds during the reveal phase.
	conv.StartReveal()
	assert.Equal(t, StateRevealing, conv.State())
	_, err = conv.Begin("third", func() {})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// Once the answer lands, the next submission is accepted again.
	conv.Complete("done")
	assert.Equal(t, StateIdle, conv.State())
	_, err = conv.Begin("fourth", func() {})
	assert.NoError(t, err)
}

func TestConversation_TerminalEntries(t *testing.T) {
	t.Run("Complete records the full answer", func(t *testing.T) {
		conv := NewManager().Create()
		_, err := conv.Begin("Hello!", func() {})
		require.NoError(t, err)

		final := conv.Complete("Hi there!")

		msgs := conv.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, model.RoleUser, msgs[0].Role)
		assert.Equal(t, "Hello!", msgs[0].Content)
		assert.Equal(t, model.RoleAssistant, msgs[1].Role)
		assert.Equal(t, "Hi there!", msgs[1].Content)
		assert.Equal(t, final, msgs[1])
	})

	t.Run("Fail records exactly the fallback text", func(t *testing.T) {
		conv := NewManager().Create()
		_, err := conv.Begin("Hello!", func() {})
		require.NoError(t, err)

		conv.Fail()

		msgs := conv.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, model.FallbackText, msgs[1].Content)
		assert.Equal(t, StateFailed, conv.State())
	})

	t.Run("Canceled records exactly the stop marker", func(t *testing.T) {
		conv := NewManager().Create()
		_, err := conv.Begin("Hello!", func() {})
		require.NoError(t, err)

		conv.Canceled()

		msgs := conv.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, model.StopMarkerText, msgs[1].Content)
		assert.Equal(t, StateCanceled, conv.State())
	})

	t.Run("Failed and canceled states accept a new submission", func(t *testing.T) {
		conv := NewManager().Create()
		_, err := conv.Begin("q", func() {})
		require.NoError(t, err)
		conv.Fail()

		_, err = conv.Begin("again", func() {})
		assert.NoError(t, err)
		conv.Canceled()

		_, err = conv.Begin("and again", func() {})
		assert.NoError(t, err)
	})
}

func TestConversation_Cancel(t *testing.T) {
	conv := NewManager().Create()

	// Nothing in flight yet.
	assert.False(t, conv.Cancel())

	ctx, cancel := context.WithCancel(context.Background())
	_, err := conv.Begin("q", cancel)
	require.NoError(t, err)

	assert.True(t, conv.Cancel())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	// Cancel is idempotent once the in-flight request is gone.
	assert.False(t, conv.Cancel())
}

func TestManager_DeleteCancelsInFlight(t *testing.T) {
	m := NewManager()
	conv := m.Create()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := conv.Begin("q", cancel)
	require.NoError(t, err)

	require.NoError(t, m.Delete(conv.ID))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestConversation_SnapshotIsACopy(t *testing.T) {
	conv := NewManager().Create()
	_, err := conv.Begin("q", func() {})
	require.NoError(t, err)

	snap := conv.Snapshot()
	require.Len(t, snap.Messages, 1)
	snap.Messages[0].Content = "mutated"

	assert.Equal(t, "q", conv.Messages()[0].Content)
}
