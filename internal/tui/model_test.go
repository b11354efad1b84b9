package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carbon-scribe/onboarding-tracker/internal/onboarding"
)

type failingStore struct {
	mock.Mock
}

func (s *failingStore) Load(ctx context.Context, key string) ([]byte, error) {
	args := s.Called(ctx, key)
	return nil, args.Error(1)
}

func (s *failingStore) Save(ctx context.Context, key string, data []byte) error {
	return s.Called(ctx, key, data).Error(0)
}

func newModel(t *testing.T, opts ...onboarding.Option) (Model, *onboarding.Tracker) {
	t.Helper()
	tracker, err := onboarding.Create([]onboarding.StepDefinition{
		{ID: "a", Label: "Create account"},
		{ID: "b", Label: "Set up profile"},
		{ID: "c", Label: "Invite team"},
	}, opts...)
	require.NoError(t, err)

	m := New(tracker, "Welcome")
	t.Cleanup(m.Close)
	return m, tracker
}

func key(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	got, ok := next.(Model)
	require.True(t, ok, "Update returned %T, want Model", next)
	return got
}

func TestModel_AdvanceWithEnterAndSpace(t *testing.T) {
	m, tracker := newModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 33, m.state.PercentComplete)
	assert.Equal(t, 1, m.cursor)

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, 67, m.state.PercentComplete)
	assert.Equal(t, 2, tracker.CurrentIndex())
}

func TestModel_CompleteAndSkipUnderCursor(t *testing.T) {
	m, tracker := newModel(t)

	m = press(t, m, key("j"))
	m = press(t, m, key("j"))
	m = press(t, m, key("s"))
	assert.Equal(t, onboarding.StatusSkipped, tracker.Steps()[2].Status)
	// cursor follows the current step
	assert.Equal(t, 0, m.cursor)

	m = press(t, m, key("c"))
	assert.Equal(t, onboarding.StatusCompleted, tracker.Steps()[0].Status)
	assert.Equal(t, 1, m.cursor)
	assert.Empty(t, m.status)
}

func TestModel_RejectedMutationShowsError(t *testing.T) {
	m, _ := newModel(t)

	m = press(t, m, key("c"))
	m = press(t, m, key("k"))
	m = press(t, m, key("c"))
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "already")
	assert.Contains(t, m.View(), "already")
}

func TestModel_PersistWarningShown(t *testing.T) {
	store := new(failingStore)
	store.On("Save", mock.Anything, "user-1", mock.Anything).Return(errors.New("disk full"))
	m, _ := newModel(t, onboarding.WithStore(store, "user-1"))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 33, m.state.PercentComplete)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "disk full")
}

func TestModel_ResetAndDone(t *testing.T) {
	m, _ := newModel(t)
	for i := 0; i < 3; i++ {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	}
	assert.True(t, m.state.Done)
	assert.Contains(t, m.View(), "All steps finished")
	assert.Contains(t, m.View(), "100%")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.statusErr)

	m = press(t, m, key("r"))
	assert.Equal(t, 0, m.state.PercentComplete)
	assert.Equal(t, 0, m.cursor)
	assert.False(t, m.statusErr)
}

func TestModel_ExternalChangeRefreshesView(t *testing.T) {
	m, tracker := newModel(t)

	cmd := m.Init()
	_, err := tracker.CompleteStep("a")
	require.NoError(t, err)

	msg := cmd()
	next, nextCmd := m.Update(msg)
	m = next.(Model)
	assert.Equal(t, 33, m.state.PercentComplete)
	assert.NotNil(t, nextCmd)
}

func TestModel_ViewCentersWhenSized(t *testing.T) {
	m, _ := newModel(t)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(Model)

	view := m.View()
	assert.Equal(t, 30, len(strings.Split(view, "\n")))
	assert.Contains(t, view, "Create account")
	assert.Contains(t, view, "Step 1 of 3")
}

func TestModel_Quit(t *testing.T) {
	m, _ := newModel(t)

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_FooterHidesFinishedStepActions(t *testing.T) {
	m, _ := newModel(t)
	assert.Contains(t, m.View(), "c complete")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = press(t, m, key("k"))
	view := m.View()
	assert.NotContains(t, view, "c complete")
	assert.NotContains(t, view, "s skip")
	assert.Contains(t, view, "r reset")
}
