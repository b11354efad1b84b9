package onboarding

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"carbon-scribe/onboarding-tracker/pkg/workflows"
)

// DefaultPersistTimeout bounds a store write when no WithPersistTimeout is given
const DefaultPersistTimeout = 5 * time.Second

// SnapshotStore is where a tracker writes its state after each mutation.
// storage.Store satisfies it.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Listener receives change events. It runs on the goroutine that made the
// mutation, after the tracker lock is released.
type Listener func(ChangeEvent)

type subscription struct {
	id int
	fn Listener
}

// Tracker tracks one user's progress through an ordered list of steps
type Tracker struct {
	mu      sync.Mutex
	steps   []Step
	index   map[string]int
	current int

	machine        *workflows.StateMachine
	store          SnapshotStore
	key            string
	persistTimeout time.Duration
	logger         *zap.Logger
	now            func() time.Time

	// saveMu orders writes to store. It is never taken while mu is held.
	saveMu   sync.Mutex
	seq      uint64
	savedSeq uint64

	listeners []subscription
	nextID    int
}

// Option configures a Tracker
type Option func(*Tracker)

// WithStore persists every successful mutation under key
func WithStore(store SnapshotStore, key string) Option {
	return func(t *Tracker) {
		t.store = store
		t.key = key
	}
}

// WithPersistTimeout bounds each store write. A write that runs out of time
// is reported as a Result warning.
func WithPersistTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.persistTimeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithClock overrides the time source used for change events
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Create builds a fresh tracker with every step pending
func Create(defs []StepDefinition, opts ...Option) (*Tracker, error) {
	if err := ValidateDefinitions(defs); err != nil {
		return nil, err
	}

	t := newTracker(defs, opts)
	for i := range t.steps {
		t.steps[i].Status = StatusPending
	}
	t.recompute()
	return t, nil
}

// Restore rebuilds a tracker from a snapshot. Order and labels come from defs;
// the snapshot must carry exactly the configured ids with recognized statuses.
func Restore(defs []StepDefinition, snapshot PersistedState, opts ...Option) (*Tracker, error) {
	if err := ValidateDefinitions(defs); err != nil {
		return nil, err
	}
	if snapshot.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: snapshot version %d, expected %d", ErrCorruptState, snapshot.Version, SchemaVersion)
	}
	if len(snapshot.Steps) != len(defs) {
		return nil, fmt.Errorf("%w: snapshot has %d steps, configuration has %d", ErrCorruptState, len(snapshot.Steps), len(defs))
	}

	t := newTracker(defs, opts)

	seen := make(map[string]bool, len(snapshot.Steps))
	for _, ps := range snapshot.Steps {
		if seen[ps.ID] {
			return nil, fmt.Errorf("%w: duplicate step %q in snapshot", ErrCorruptState, ps.ID)
		}
		seen[ps.ID] = true

		i, ok := t.index[ps.ID]
		if !ok {
			return nil, fmt.Errorf("%w: snapshot step %q is not configured", ErrCorruptState, ps.ID)
		}
		if !t.machine.IsKnown(string(ps.Status)) {
			return nil, fmt.Errorf("%w: step %q has unknown status %q", ErrCorruptState, ps.ID, ps.Status)
		}
		t.steps[i].Status = ps.Status
	}

	t.recompute()
	return t, nil
}

// ValidateDefinitions rejects empty lists, empty ids and duplicate ids
func ValidateDefinitions(defs []StepDefinition) error {
	if len(defs) == 0 {
		return fmt.Errorf("%w: at least one step is required", ErrInvalidConfiguration)
	}
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		if def.ID == "" {
			return fmt.Errorf("%w: step %d has an empty id", ErrInvalidConfiguration, i)
		}
		if seen[def.ID] {
			return fmt.Errorf("%w: duplicate step id %q", ErrInvalidConfiguration, def.ID)
		}
		seen[def.ID] = true
	}
	return nil
}

func newTracker(defs []StepDefinition, opts []Option) *Tracker {
	t := &Tracker{
		steps:   make([]Step, len(defs)),
		index:   make(map[string]int, len(defs)),
		machine:        workflows.NewStateMachine(),
		persistTimeout: DefaultPersistTimeout,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for i, def := range defs {
		t.steps[i] = Step{ID: def.ID, Label: def.Label, Status: StatusPending}
		t.index[def.ID] = i
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// recompute rescans from the start; steps may be finished out of order.
func (t *Tracker) recompute() {
	t.current = len(t.steps)
	for i, step := range t.steps {
		if step.Status == StatusPending {
			t.current = i
			return
		}
	}
}

// Steps returns a copy of the steps in configured order
func (t *Tracker) Steps() []Step {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copySteps()
}

// CurrentStep returns the first pending step, or false when done
func (t *Tracker) CurrentStep() (Step, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current >= len(t.steps) {
		return Step{}, false
	}
	return t.steps[t.current], true
}

func (t *Tracker) CurrentIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// PercentComplete counts completed and skipped steps alike
func (t *Tracker) PercentComplete() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent()
}

func (t *Tracker) IsDone() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current == len(t.steps)
}

// State returns a consistent view of steps and derived metrics
func (t *Tracker) State() ProgressState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

// Snapshot returns the persisted form of the current state
func (t *Tracker) Snapshot() PersistedState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Subscribe registers fn for change events and returns a function that removes it
func (t *Tracker) Subscribe(fn Listener) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners = append(t.listeners, subscription{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, sub := range t.listeners {
				if sub.id == id {
					t.listeners = append(t.listeners[:i:i], t.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// CompleteStep marks the named step completed
func (t *Tracker) CompleteStep(id string) (Result, error) {
	return t.finish(id, StatusCompleted)
}

// SkipStep marks the named step skipped
func (t *Tracker) SkipStep(id string) (Result, error) {
	return t.finish(id, StatusSkipped)
}

// Advance completes whichever step is current
func (t *Tracker) Advance() (Result, error) {
	t.mu.Lock()
	if t.current >= len(t.steps) {
		state := t.stateLocked()
		t.mu.Unlock()
		return Result{State: state}, fmt.Errorf("%w: onboarding is already done", ErrAlreadyTerminal)
	}
	return t.finishLocked(t.current, StatusCompleted)
}

// Reset puts every step back to pending. It always succeeds.
func (t *Tracker) Reset() (Result, error) {
	t.mu.Lock()

	var changes []StepChange
	for i := range t.steps {
		if t.steps[i].Status != StatusPending {
			changes = append(changes, StepChange{StepID: t.steps[i].ID, From: t.steps[i].Status, To: StatusPending})
			t.steps[i].Status = StatusPending
		}
	}
	t.recompute()

	return t.commitLocked(ChangeEvent{Kind: ChangeReset, Changes: changes}), nil
}

func (t *Tracker) finish(id string, to StepStatus) (Result, error) {
	t.mu.Lock()
	i, ok := t.index[id]
	if !ok {
		state := t.stateLocked()
		t.mu.Unlock()
		return Result{State: state}, fmt.Errorf("%w: %q", ErrUnknownStep, id)
	}
	return t.finishLocked(i, to)
}

// finishLocked is entered with t.mu held and releases it.
func (t *Tracker) finishLocked(i int, to StepStatus) (Result, error) {
	step := t.steps[i]
	if !t.machine.CanTransition(string(step.Status), string(to)) {
		state := t.stateLocked()
		t.mu.Unlock()
		return Result{State: state}, fmt.Errorf("%w: step %q is already %s", ErrAlreadyTerminal, step.ID, step.Status)
	}

	t.steps[i].Status = to
	t.recompute()

	kind := ChangeCompleted
	if to == StatusSkipped {
		kind = ChangeSkipped
	}
	return t.commitLocked(ChangeEvent{
		Kind:    kind,
		StepID:  step.ID,
		Changes: []StepChange{{StepID: step.ID, From: step.Status, To: to}},
	}), nil
}

// commitLocked releases t.mu, persists the new state and notifies listeners.
// Queries are not held up by a slow store.
func (t *Tracker) commitLocked(event ChangeEvent) Result {
	state := t.stateLocked()
	t.seq++
	seq := t.seq
	snapshot := t.snapshotLocked()

	event.State = state
	event.At = t.now()
	listeners := make([]Listener, len(t.listeners))
	for i, sub := range t.listeners {
		listeners[i] = sub.fn
	}
	t.mu.Unlock()

	warning := t.persist(seq, snapshot)

	for _, fn := range listeners {
		fn(event)
	}
	return Result{State: state, Warning: warning}
}

// persist writes snapshot unless a newer one has already been written.
func (t *Tracker) persist(seq uint64, snapshot PersistedState) error {
	if t.store == nil {
		return nil
	}

	t.saveMu.Lock()
	defer t.saveMu.Unlock()
	if seq <= t.savedSeq {
		return nil
	}

	data, err := EncodeSnapshot(snapshot)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), t.persistTimeout)
		err = t.store.Save(ctx, t.key, data)
		cancel()
	}
	if err != nil {
		t.logger.Warn("Failed to persist onboarding state",
			zap.String("session_key", t.key),
			zap.Error(err))
		return fmt.Errorf("failed to persist onboarding state: %w", err)
	}
	t.savedSeq = seq
	return nil
}

func (t *Tracker) percent() int {
	total := len(t.steps)
	if total == 0 {
		return 0
	}
	finished := 0
	for _, step := range t.steps {
		if step.Status != StatusPending {
			finished++
		}
	}
	if finished == total {
		return 100
	}
	pct := int(math.Round(float64(finished) * 100 / float64(total)))
	// 100 is reserved for a finished tracker
	if pct > 99 {
		pct = 99
	}
	return pct
}

func (t *Tracker) copySteps() []Step {
	steps := make([]Step, len(t.steps))
	copy(steps, t.steps)
	return steps
}

func (t *Tracker) stateLocked() ProgressState {
	state := ProgressState{
		Steps:           t.copySteps(),
		CurrentIndex:    t.current,
		TotalSteps:      len(t.steps),
		PercentComplete: t.percent(),
		Done:            t.current == len(t.steps),
	}
	if !state.Done {
		current := t.steps[t.current]
		state.CurrentStep = &current
	}
	return state
}

func (t *Tracker) snapshotLocked() PersistedState {
	snapshot := PersistedState{
		Version: SchemaVersion,
		Steps:   make([]PersistedStep, len(t.steps)),
	}
	for i, step := range t.steps {
		snapshot.Steps[i] = PersistedStep{ID: step.ID, Status: step.Status}
	}
	return snapshot
}
