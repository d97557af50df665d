package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Run is one scheduling attempt and its step flow.
type Run struct {
	ID         string
	Mode       Mode
	Title      string
	CreatedAt  time.Time
	FinishedAt time.Time

	flow *Flow
	done chan struct{}
	err  error
}

// Done is closed when the run stops, successfully or not.
func (r *Run) Done() <-chan struct{} { return r.done }

// Err returns the error that stopped the run, if any. Only valid after Done.
func (r *Run) Err() error { return r.err }

func (r *Run) Flow() *Flow { return r.flow }

// Snapshot is the JSON view of a run.
type Snapshot struct {
	ID         string     `json:"id"`
	Mode       Mode       `json:"mode"`
	Title      string     `json:"title"`
	State      RunState   `json:"state"`
	Progress   int        `json:"progress"`
	Steps      []Step     `json:"steps"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type Options struct {
	Collector Collector
	Extractor Extractor
	Directory Directory
	Sink      MeetingSink
	Confirmer Confirmer
	Listener  Listener
	Delay     time.Duration
	Location  *time.Location // zone of requested dates, defaults to time.Local
	Logger    *zap.Logger
}

// Manager owns every run of the process. Runs execute on their own
// goroutine and are cancelled by Shutdown.
type Manager struct {
	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.RWMutex
	runs map[string]*Run
}

func NewManager(opts Options) *Manager {
	if opts.Collector == nil {
		opts.Collector = MultiCollector{
			Natural: NaturalCollector{Extractor: opts.Extractor, Directory: opts.Directory, Location: opts.Location},
			Form:    FormCollector{Location: opts.Location},
		}
	}
	if opts.Confirmer == nil {
		opts.Confirmer = SimulatedConfirmer()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		opts:   opts,
		log:    log.Named("scheduling"),
		ctx:    ctx,
		cancel: cancel,
		runs:   make(map[string]*Run),
	}
}

// Start collects the request and launches a run in the background.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Run, error) {
	methods, err := ContactMethodsByID(req.ContactMethods)
	if err != nil {
		return nil, err
	}
	plan, err := m.opts.Collector.Collect(ctx, req)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:        uuid.NewString(),
		Mode:      plan.Mode,
		Title:     plan.Title,
		CreatedAt: time.Now(),
		done:      make(chan struct{}),
	}
	run.flow = NewFlow(run.ID, DefaultSteps(m.opts.Directory, m.opts.Sink), methods,
		WithDelay(m.opts.Delay),
		WithConfirmer(m.opts.Confirmer),
		WithListener(m.opts.Listener),
	)

	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()

	m.wg.Add(1)
	go m.execute(run, plan)

	m.log.Info("Scheduling run started",
		zap.String("run_id", run.ID),
		zap.String("mode", string(plan.Mode)),
		zap.Strings("participants", plan.Participants))
	return run, nil
}

func (m *Manager) execute(run *Run, plan *Plan) {
	defer m.wg.Done()
	defer close(run.done)

	err := run.flow.Run(m.ctx, plan)

	m.mu.Lock()
	run.err = err
	run.FinishedAt = time.Now()
	m.mu.Unlock()

	if err != nil {
		m.log.Warn("Scheduling run failed", zap.String("run_id", run.ID), zap.Error(err))
		return
	}
	m.log.Info("Scheduling run completed", zap.String("run_id", run.ID))
}

func (m *Manager) Get(id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, errors.Wrap(ErrRunNotFound, id)
	}
	return run, nil
}

// Snapshot returns the current view of run id.
func (m *Manager) Snapshot(id string) (Snapshot, error) {
	run, err := m.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return m.snapshot(run), nil
}

// List returns snapshots of all runs, newest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	runs := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	m.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	out := make([]Snapshot, len(runs))
	for i, r := range runs {
		out[i] = m.snapshot(r)
	}
	return out
}

func (m *Manager) snapshot(run *Run) Snapshot {
	s := Snapshot{
		ID:        run.ID,
		Mode:      run.Mode,
		Title:     run.Title,
		State:     run.flow.State(),
		Progress:  run.flow.Progress(),
		Steps:     run.flow.Steps(),
		CreatedAt: run.CreatedAt,
	}
	m.mu.RLock()
	if run.err != nil {
		s.Error = run.err.Error()
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		s.FinishedAt = &finished
	}
	m.mu.RUnlock()
	return s
}

func (m *Manager) SimulateError(id string, index int) error {
	run, err := m.Get(id)
	if err != nil {
		return err
	}
	m.log.Info("Simulating step error", zap.String("run_id", id), zap.Int("step", index))
	return run.flow.SimulateError(index)
}

func (m *Manager) CompleteIntervention(id string) (Step, error) {
	run, err := m.Get(id)
	if err != nil {
		return Step{}, err
	}
	m.log.Info("Manual intervention completed", zap.String("run_id", id))
	return run.flow.CompleteIntervention()
}

func (m *Manager) ReorderContactMethods(id string, from, to int) ([]ContactMethod, error) {
	run, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return run.flow.ReorderContactMethods(from, to)
}

// Shutdown cancels in-flight runs and waits for them to stop or for ctx
// to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
