package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionStore_CreateGetDelete(t *testing.T) {
	st := NewSessionStore(zap.NewNop())
	s := st.Create()
	require.NotEmpty(t, s.ID)

	got, ok := st.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, st.Len())

	assert.True(t, st.Delete(s.ID))
	assert.False(t, st.Delete(s.ID))
	_, ok = st.Get(s.ID)
	assert.False(t, ok)
}

func TestSessionStore_SweepRemovesIdleSessions(t *testing.T) {
	st := NewSessionStore(zap.NewNop())
	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }

	idle := st.Create()
	clock = clock.Add(90 * time.Minute)
	fresh := st.Create()

	clock = clock.Add(45 * time.Minute)
	removed := st.Sweep(2 * time.Hour)

	assert.Equal(t, 1, removed)
	_, ok := st.Get(idle.ID)
	assert.False(t, ok)
	_, ok = st.Get(fresh.ID)
	assert.True(t, ok)
}

func TestSessionStore_SweepKeepsLoadingSessions(t *testing.T) {
	st := NewSessionStore(zap.NewNop())
	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }

	loading := st.Create()
	loading.Begin(RequestOptimization, "1ABC")
	idle := st.Create()

	clock = clock.Add(3 * time.Hour)
	removed := st.Sweep(2 * time.Hour)

	assert.Equal(t, 1, removed)
	_, ok := st.Get(loading.ID)
	assert.True(t, ok)
	_, ok = st.Get(idle.ID)
	assert.False(t, ok)
}

func TestSessionStore_StartSweeperRejectsBadSchedule(t *testing.T) {
	st := NewSessionStore(zap.NewNop())
	_, err := st.StartSweeper("every now and then", time.Hour)
	assert.Error(t, err)

	c, err := st.StartSweeper("@every 1h", time.Hour)
	require.NoError(t, err)
	c.Stop()
}
