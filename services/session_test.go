package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"molgenx/models"
)

func newTestSession() *Session {
	return NewSession("test", zap.NewNop())
}

func sampleCompounds(n int) []models.Compound {
	out := make([]models.Compound, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Compound{
			ID:         fmt.Sprintf("c%d", i),
			Likeliness: float64(i) / 10,
			Toxicity:   float64(i),
		})
	}
	return out
}

func sampleOptimized(n int) *OptimizationResult {
	res := &OptimizationResult{Explanation: "because"}
	for i := 0; i < n; i++ {
		res.Compounds = append(res.Compounds, models.OptimizedCompound{
			Compound: models.Compound{ID: fmt.Sprintf("o%d", i)},
		})
	}
	return res
}

func lastNotification(t *testing.T, s *Session) Notification {
	t.Helper()
	view := s.Snapshot(false)
	require.NotEmpty(t, view.Notifications)
	return view.Notifications[len(view.Notifications)-1]
}

func TestSession_InitialState(t *testing.T) {
	s := newTestSession()
	view := s.Snapshot(false)

	assert.Equal(t, StateEmpty, view.State)
	assert.Equal(t, SelectorOriginal, view.Active)
	assert.Equal(t, models.DefaultFilters(), view.Filters)
	assert.Equal(t, models.DefaultWeights(), view.Weights)
	assert.Empty(t, view.Compounds)
	assert.Contains(t, view.Summary.Text, "click search")
}

func TestSession_SearchFlow(t *testing.T) {
	s := newTestSession()

	ticket := s.Begin(RequestSearch, "1ABC")
	assert.Equal(t, StateLoading, s.State())
	assert.Equal(t, "Searching for compatible compounds...", s.Snapshot(false).Summary.Text)

	require.True(t, s.CompleteSearch(ticket, sampleCompounds(4)))
	view := s.Snapshot(true)
	assert.Equal(t, StateShowingOriginal, view.State)
	assert.Equal(t, "1ABC", view.ProteinKey)
	assert.Len(t, view.Compounds, 4)
	assert.Equal(t, "Compatible Compounds", view.Summary.Heading)
	assert.Equal(t, "We found 4 compounds with potential binding affinity.", view.Summary.Text)
	require.Len(t, view.Notifications, 1)
	assert.Equal(t, NotifySearchComplete, view.Notifications[0].Kind)

	// drain hat geleert
	assert.Empty(t, s.Snapshot(false).Notifications)
}

func TestSession_FilteredSummary(t *testing.T) {
	s := newTestSession()
	ticket := s.Begin(RequestSearch, "1ABC")
	s.CompleteSearch(ticket, sampleCompounds(5))

	f := models.DefaultFilters()
	f.MaxToxicity = 2
	require.NoError(t, s.SetFilters(f))

	summary := s.Snapshot(false).Summary
	assert.Equal(t, 3, summary.Shown)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, "Showing 3 of 5 compounds.", summary.Text)
}

func TestSession_OptimizationFlow(t *testing.T) {
	s := newTestSession()
	s.CompleteSearch(s.Begin(RequestSearch, "1ABC"), sampleCompounds(3))

	_, err := s.TogglePanel(PanelOptimization)
	require.NoError(t, err)

	ticket := s.Begin(RequestOptimization, "")
	assert.Equal(t, "Optimizing compounds for your target...", s.Snapshot(false).Summary.Text)
	require.True(t, s.CompleteOptimization(ticket, sampleOptimized(2)))

	view := s.Snapshot(false)
	assert.Equal(t, StateShowingOptimized, view.State)
	assert.Equal(t, SelectorOptimized, view.Active)
	assert.Equal(t, "1ABC", view.ProteinKey)
	assert.True(t, view.HasOptimized)
	assert.Equal(t, "Optimized Compounds", view.Summary.Heading)
	assert.Equal(t, "because", view.Explanation)
	assert.False(t, view.Panels[PanelOptimization])

	n := lastNotification(t, s)
	assert.Equal(t, NotifyOptimizationComplete, n.Kind)
	assert.Equal(t, "Found 2 optimized compounds for your target.", n.Description)

	// zurück zur Originalliste: Erklärung wird ausgeblendet
	require.NoError(t, s.SetActive(SelectorOriginal))
	view = s.Snapshot(false)
	assert.Equal(t, StateShowingOriginal, view.State)
	assert.Empty(t, view.Explanation)
	assert.Len(t, view.Compounds, 3)

	require.NoError(t, s.SetActive(SelectorOptimized))
	assert.Equal(t, StateShowingOptimized, s.State())
}

func TestSession_MalformedOptimization(t *testing.T) {
	s := newTestSession()
	ticket := s.Begin(RequestOptimization, "1ABC")
	require.True(t, s.CompleteOptimization(ticket, &OptimizationResult{Malformed: true, Issues: []string{"bad"}}))

	assert.Equal(t, StateShowingOptimized, s.State())
	n := lastNotification(t, s)
	assert.Equal(t, NotifyMalformedResponse, n.Kind)
	assert.True(t, n.Destructive)
	assert.Empty(t, s.Snapshot(false).Compounds)
}

func TestSession_FailRevertsToPreviousState(t *testing.T) {
	s := newTestSession()
	s.CompleteSearch(s.Begin(RequestSearch, "1ABC"), sampleCompounds(2))

	ticket := s.Begin(RequestOptimization, "")
	require.True(t, s.Fail(ticket, &RequestFailedError{StatusCode: 500, Body: "boom"}))

	assert.Equal(t, StateShowingOriginal, s.State())
	n := lastNotification(t, s)
	assert.Equal(t, NotifyRequestFailed, n.Kind)
	assert.Equal(t, "Optimization Failed", n.Title)
	assert.Equal(t, "Error: 500 boom", n.Description)
	assert.Len(t, s.DisplayedList(), 2)
}

func TestSession_FailFromEmpty(t *testing.T) {
	s := newTestSession()
	ticket := s.Begin(RequestOptimization, "1ABC")
	require.True(t, s.Fail(ticket, fmt.Errorf("%w: dial tcp", ErrNetwork)))

	assert.Equal(t, StateEmpty, s.State())
	assert.Equal(t, NotifyNetworkError, lastNotification(t, s).Kind)
}

func TestSession_StaleResponsesAreDropped(t *testing.T) {
	s := newTestSession()
	first := s.Begin(RequestSearch, "1ABC")
	second := s.Begin(RequestOptimization, "1ABC")

	assert.False(t, s.CompleteSearch(first, sampleCompounds(3)))
	assert.Equal(t, StateLoading, s.State())

	require.True(t, s.CompleteOptimization(second, sampleOptimized(1)))
	assert.Equal(t, StateShowingOptimized, s.State())

	// erneut abschließen geht nicht
	assert.False(t, s.Fail(second, errors.New("late")))
	assert.Equal(t, StateShowingOptimized, s.State())
}

func TestSession_BeginExclusive(t *testing.T) {
	s := newTestSession()
	ticket, err := s.BeginExclusive(RequestSearch, "1ABC")
	require.NoError(t, err)

	_, err = s.BeginExclusive(RequestOptimization, "1ABC")
	assert.ErrorIs(t, err, ErrAlreadyLoading)

	s.CompleteSearch(ticket, sampleCompounds(1))
	_, err = s.BeginExclusive(RequestOptimization, "1ABC")
	assert.NoError(t, err)
}

func TestSession_NewSearchClearsOptimization(t *testing.T) {
	s := newTestSession()
	s.CompleteSearch(s.Begin(RequestSearch, "1ABC"), sampleCompounds(2))
	s.CompleteOptimization(s.Begin(RequestOptimization, ""), sampleOptimized(2))

	s.CompleteSearch(s.Begin(RequestSearch, "2XYZ"), sampleCompounds(1))
	view := s.Snapshot(false)
	assert.False(t, view.HasOptimized)
	assert.Equal(t, SelectorOriginal, view.Active)
	assert.ErrorIs(t, s.SetActive(SelectorOptimized), ErrNoOptimized)
}

func TestSession_SetActiveValidation(t *testing.T) {
	s := newTestSession()
	assert.ErrorIs(t, s.SetActive(SelectorOptimized), ErrNoOptimized)
	assert.ErrorIs(t, s.SetActive("other"), ErrInvalidInput)
	assert.NoError(t, s.SetActive(SelectorOriginal))
	assert.Equal(t, StateEmpty, s.State())
}

func TestSession_Weights(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.SetWeight("toxicity", 2))
	assert.Equal(t, 2.0, s.Weights().Toxicity)

	assert.ErrorIs(t, s.SetWeight("toxicity", 2.5), ErrInvalidInput)
	assert.ErrorIs(t, s.SetWeight("colour", 1), ErrInvalidInput)
	assert.Equal(t, 2.0, s.Weights().Toxicity)

	w := models.DefaultWeights()
	w.Solubility = -1
	assert.ErrorIs(t, s.SetWeights(w), ErrInvalidInput)
}

func TestSession_SetFiltersRejectsUnknownSort(t *testing.T) {
	s := newTestSession()
	f := models.DefaultFilters()
	f.SortBy = "name-asc"
	assert.ErrorIs(t, s.SetFilters(f), ErrInvalidInput)
	assert.Equal(t, models.DefaultFilters(), s.Snapshot(false).Filters)
}

func TestSession_TogglePanel(t *testing.T) {
	s := newTestSession()
	open, err := s.TogglePanel(PanelFilter)
	require.NoError(t, err)
	assert.True(t, open)

	open, err = s.TogglePanel(PanelFilter)
	require.NoError(t, err)
	assert.False(t, open)

	_, err = s.TogglePanel("sidebar")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSession_RejectInput(t *testing.T) {
	s := newTestSession()
	s.RejectInput(InvalidInputf("empty"))

	assert.Equal(t, StateEmpty, s.State())
	n := lastNotification(t, s)
	assert.Equal(t, NotifyInvalidInput, n.Kind)
	assert.True(t, n.Destructive)
}

func TestSession_NotificationsAreCapped(t *testing.T) {
	s := newTestSession()
	for i := 0; i < maxNotifications+5; i++ {
		s.RejectInput(InvalidInputf("n%d", i))
	}
	view := s.Snapshot(false)
	require.Len(t, view.Notifications, maxNotifications)
	assert.Contains(t, view.Notifications[maxNotifications-1].Description, fmt.Sprintf("n%d", maxNotifications+4))
}

func TestSession_TouchUpdatesLastActive(t *testing.T) {
	s := newTestSession()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, _ = s.TogglePanel(PanelSort)
	assert.Equal(t, now, s.LastActive())
}
