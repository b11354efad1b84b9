package onboarding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStore is a mock implementation of the SnapshotStore interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStore) Save(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func abcSteps() []StepDefinition {
	return []StepDefinition{
		{ID: "a", Label: "Create account"},
		{ID: "b", Label: "Set up profile"},
		{ID: "c", Label: "Invite team"},
	}
}

func newABC(t *testing.T, opts ...Option) *Tracker {
	t.Helper()
	tracker, err := Create(abcSteps(), opts...)
	require.NoError(t, err)
	return tracker
}

func TestCreate_StartsPending(t *testing.T) {
	tracker := newABC(t)

	assert.Equal(t, 0, tracker.PercentComplete())
	assert.Equal(t, 0, tracker.CurrentIndex())
	assert.False(t, tracker.IsDone())
	for _, step := range tracker.Steps() {
		assert.Equal(t, StatusPending, step.Status)
	}

	current, ok := tracker.CurrentStep()
	require.True(t, ok)
	assert.Equal(t, "a", current.ID)
	assert.Equal(t, "Create account", current.Label)
}

func TestCreate_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		defs []StepDefinition
	}{
		{name: "empty", defs: nil},
		{name: "duplicate id", defs: []StepDefinition{{ID: "a"}, {ID: "b"}, {ID: "a"}}},
		{name: "empty id", defs: []StepDefinition{{ID: "a"}, {ID: ""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, err := Create(tt.defs)
			assert.Nil(t, tracker)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestScenario_CompleteSkipComplete(t *testing.T) {
	tracker := newABC(t)

	res, err := tracker.CompleteStep("a")
	require.NoError(t, err)
	assert.Equal(t, 33, res.State.PercentComplete)
	require.NotNil(t, res.State.CurrentStep)
	assert.Equal(t, "b", res.State.CurrentStep.ID)

	res, err = tracker.SkipStep("b")
	require.NoError(t, err)
	assert.Equal(t, 67, res.State.PercentComplete)
	assert.Equal(t, "c", res.State.CurrentStep.ID)

	res, err = tracker.CompleteStep("c")
	require.NoError(t, err)
	assert.True(t, res.State.Done)
	assert.Nil(t, res.State.CurrentStep)
	assert.Equal(t, 100, res.State.PercentComplete)
	assert.Equal(t, 3, res.State.CurrentIndex)

	assert.True(t, tracker.IsDone())
	assert.Equal(t, 100, tracker.PercentComplete())
	_, ok := tracker.CurrentStep()
	assert.False(t, ok)

	statuses := []StepStatus{}
	for _, step := range tracker.Steps() {
		statuses = append(statuses, step.Status)
	}
	assert.Equal(t, []StepStatus{StatusCompleted, StatusSkipped, StatusCompleted}, statuses)
}

func TestCompleteStep_UnknownStep(t *testing.T) {
	tracker := newABC(t)
	before := tracker.State()

	res, err := tracker.CompleteStep("z")
	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.Equal(t, before, res.State)
	assert.Equal(t, before, tracker.State())

	_, err = tracker.SkipStep("z")
	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.Equal(t, before, tracker.State())
}

func TestCompleteStep_SecondCallIsAlreadyTerminal(t *testing.T) {
	tracker := newABC(t)

	_, err := tracker.CompleteStep("a")
	require.NoError(t, err)
	after := tracker.State()

	_, err = tracker.CompleteStep("a")
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	assert.Equal(t, after, tracker.State())

	_, err = tracker.SkipStep("a")
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	assert.Equal(t, after, tracker.State())
}

func TestSkipStep_ThenComplete_IsAlreadyTerminal(t *testing.T) {
	tracker := newABC(t)

	_, err := tracker.SkipStep("b")
	require.NoError(t, err)

	_, err = tracker.CompleteStep("b")
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	assert.Equal(t, StatusSkipped, tracker.Steps()[1].Status)
}

func TestOutOfOrderCompletion_KeepsFirstPendingCurrent(t *testing.T) {
	tracker := newABC(t)

	res, err := tracker.CompleteStep("c")
	require.NoError(t, err)
	assert.Equal(t, 0, res.State.CurrentIndex)
	assert.Equal(t, 33, res.State.PercentComplete)

	_, err = tracker.CompleteStep("a")
	require.NoError(t, err)
	assert.Equal(t, 1, tracker.CurrentIndex())

	_, err = tracker.Advance()
	require.NoError(t, err)
	assert.True(t, tracker.IsDone())
}

func TestAdvance(t *testing.T) {
	tracker := newABC(t)

	for _, want := range []string{"a", "b", "c"} {
		current, ok := tracker.CurrentStep()
		require.True(t, ok)
		assert.Equal(t, want, current.ID)

		_, err := tracker.Advance()
		require.NoError(t, err)
	}
	assert.True(t, tracker.IsDone())

	res, err := tracker.Advance()
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	assert.True(t, res.State.Done)
}

func TestReset(t *testing.T) {
	tracker := newABC(t)

	_, _ = tracker.CompleteStep("a")
	_, _ = tracker.SkipStep("c")

	res, err := tracker.Reset()
	require.NoError(t, err)
	assert.Equal(t, 0, res.State.PercentComplete)
	assert.Equal(t, 0, res.State.CurrentIndex)
	assert.Equal(t, 0, tracker.PercentComplete())
	for _, step := range tracker.Steps() {
		assert.Equal(t, StatusPending, step.Status)
	}

	// reset of an untouched tracker still succeeds
	_, err = tracker.Reset()
	assert.NoError(t, err)
}

func TestEveryStepFinishedOnce_IsDone(t *testing.T) {
	defs := []StepDefinition{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}, {ID: "5"}, {ID: "6"}, {ID: "7"}}
	orders := [][]string{
		{"1", "2", "3", "4", "5", "6", "7"},
		{"7", "6", "5", "4", "3", "2", "1"},
		{"4", "1", "7", "2", "6", "3", "5"},
	}

	for _, order := range orders {
		tracker, err := Create(defs)
		require.NoError(t, err)

		for i, id := range order {
			if i%2 == 0 {
				_, err = tracker.CompleteStep(id)
			} else {
				_, err = tracker.SkipStep(id)
			}
			require.NoError(t, err)
			if i < len(order)-1 {
				assert.False(t, tracker.IsDone())
				assert.Less(t, tracker.PercentComplete(), 100)
			}
		}
		assert.True(t, tracker.IsDone())
		assert.Equal(t, 100, tracker.PercentComplete())
		assert.Equal(t, len(defs), tracker.CurrentIndex())
	}
}

func TestPercentComplete_NeverReports100BeforeDone(t *testing.T) {
	defs := make([]StepDefinition, 250)
	for i := range defs {
		defs[i] = StepDefinition{ID: string(rune('a'+i%26)) + string(rune('0'+i/26))}
	}
	tracker, err := Create(defs)
	require.NoError(t, err)

	for _, def := range defs[:249] {
		_, err := tracker.CompleteStep(def.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 99, tracker.PercentComplete())
	assert.False(t, tracker.IsDone())
}

func TestRestore_RoundTrip(t *testing.T) {
	tracker := newABC(t)
	_, _ = tracker.SkipStep("a")
	_, _ = tracker.CompleteStep("c")

	data, err := EncodeSnapshot(tracker.Snapshot())
	require.NoError(t, err)
	snapshot, err := DecodeSnapshot(data)
	require.NoError(t, err)

	restored, err := Restore(abcSteps(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, tracker.State(), restored.State())
}

func TestRestore_UsesConfiguredOrder(t *testing.T) {
	snapshot := PersistedState{
		Version: SchemaVersion,
		Steps: []PersistedStep{
			{ID: "c", Status: StatusPending},
			{ID: "a", Status: StatusCompleted},
			{ID: "b", Status: StatusPending},
		},
	}

	restored, err := Restore(abcSteps(), snapshot)
	require.NoError(t, err)

	steps := restored.Steps()
	assert.Equal(t, "a", steps[0].ID)
	assert.Equal(t, StatusCompleted, steps[0].Status)
	assert.Equal(t, 1, restored.CurrentIndex())
}

func TestRestore_CorruptState(t *testing.T) {
	valid := func() PersistedState {
		return PersistedState{
			Version: SchemaVersion,
			Steps: []PersistedStep{
				{ID: "a", Status: StatusCompleted},
				{ID: "b", Status: StatusPending},
				{ID: "c", Status: StatusPending},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*PersistedState)
	}{
		{name: "version mismatch", mutate: func(s *PersistedState) { s.Version = 2 }},
		{name: "missing version", mutate: func(s *PersistedState) { s.Version = 0 }},
		{name: "missing step", mutate: func(s *PersistedState) { s.Steps = s.Steps[:2] }},
		{name: "extra step", mutate: func(s *PersistedState) {
			s.Steps = append(s.Steps, PersistedStep{ID: "d", Status: StatusPending})
		}},
		{name: "unknown id", mutate: func(s *PersistedState) { s.Steps[2].ID = "z" }},
		{name: "duplicate id", mutate: func(s *PersistedState) { s.Steps[2].ID = "a" }},
		{name: "unknown status", mutate: func(s *PersistedState) { s.Steps[1].Status = "in_progress" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := valid()
			tt.mutate(&snapshot)

			tracker, err := Restore(abcSteps(), snapshot)
			assert.Nil(t, tracker)
			assert.ErrorIs(t, err, ErrCorruptState)
		})
	}
}

func TestDecodeSnapshot_Garbage(t *testing.T) {
	_, err := DecodeSnapshot([]byte("{not json"))
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestSubscribe_NotifiesAfterSuccessfulMutations(t *testing.T) {
	tracker := newABC(t)

	var events []ChangeEvent
	unsubscribe := tracker.Subscribe(func(e ChangeEvent) {
		// listeners may query the tracker
		assert.Equal(t, e.State.PercentComplete, tracker.PercentComplete())
		events = append(events, e)
	})

	_, _ = tracker.CompleteStep("a")
	_, _ = tracker.CompleteStep("a") // rejected, no event
	_, _ = tracker.SkipStep("z")     // rejected, no event
	_, _ = tracker.SkipStep("b")
	_, _ = tracker.Reset()

	require.Len(t, events, 3)
	assert.Equal(t, ChangeCompleted, events[0].Kind)
	assert.Equal(t, "a", events[0].StepID)
	assert.Equal(t, []StepChange{{StepID: "a", From: StatusPending, To: StatusCompleted}}, events[0].Changes)

	assert.Equal(t, ChangeSkipped, events[1].Kind)
	assert.Equal(t, 67, events[1].State.PercentComplete)

	assert.Equal(t, ChangeReset, events[2].Kind)
	assert.ElementsMatch(t, []StepChange{
		{StepID: "a", From: StatusCompleted, To: StatusPending},
		{StepID: "b", From: StatusSkipped, To: StatusPending},
	}, events[2].Changes)
	assert.False(t, events[2].At.IsZero())

	unsubscribe()
	unsubscribe()
	_, _ = tracker.Advance()
	assert.Len(t, events, 3)
}

func TestMutations_PersistSnapshot(t *testing.T) {
	store := new(MockStore)
	tracker := newABC(t, WithStore(store, "user-1"))

	store.On("Save", mock.Anything, "user-1", mock.MatchedBy(func(data []byte) bool {
		snapshot, err := DecodeSnapshot(data)
		return err == nil && snapshot.Version == 1 && snapshot.Steps[0].Status == StatusCompleted
	})).Return(nil).Once()

	res, err := tracker.CompleteStep("a")
	require.NoError(t, err)
	assert.NoError(t, res.Warning)

	// rejected mutations do not write
	_, err = tracker.CompleteStep("a")
	assert.ErrorIs(t, err, ErrAlreadyTerminal)

	store.AssertExpectations(t)
}

func TestMutations_PersistFailureIsWarning(t *testing.T) {
	store := new(MockStore)
	store.On("Save", mock.Anything, "user-1", mock.Anything).Return(errors.New("disk full"))

	tracker := newABC(t, WithStore(store, "user-1"))

	res, err := tracker.CompleteStep("a")
	require.NoError(t, err)
	require.Error(t, res.Warning)
	assert.Contains(t, res.Warning.Error(), "disk full")

	// the in-memory change is kept
	assert.Equal(t, StatusCompleted, tracker.Steps()[0].Status)
	assert.Equal(t, 1, tracker.CurrentIndex())
}

func TestMutations_HungStoreDoesNotBlockQueries(t *testing.T) {
	saving := make(chan struct{})
	store := new(MockStore)
	store.On("Save", mock.Anything, "user-1", mock.Anything).Run(func(args mock.Arguments) {
		close(saving)
		<-args.Get(0).(context.Context).Done()
	}).Return(context.DeadlineExceeded)

	tracker := newABC(t, WithStore(store, "user-1"), WithPersistTimeout(200*time.Millisecond))

	results := make(chan Result, 1)
	go func() {
		res, _ := tracker.CompleteStep("a")
		results <- res
	}()
	<-saving

	queried := make(chan int, 1)
	go func() { queried <- tracker.PercentComplete() }()
	select {
	case pct := <-queried:
		assert.Equal(t, 33, pct)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("PercentComplete waited on a pending save")
	}

	select {
	case res := <-results:
		assert.ErrorIs(t, res.Warning, context.DeadlineExceeded)
		assert.Equal(t, 33, res.State.PercentComplete)
	case <-time.After(2 * time.Second):
		t.Fatal("CompleteStep did not return after the persist timeout")
	}
}
