package scheduling

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	errorMessage        = "无法联系到部分参与者，需要人工介入"
	interventionMessage = "人工操作完成，继续AI安排"
	cancelledDetails    = "已取消"
)

// Flow is the ordered step sequence of one scheduling run. Steps are
// advanced one at a time by Run; the other methods may be called
// concurrently from request handlers.
type Flow struct {
	runID     string
	specs     []StepSpec
	delay     time.Duration
	confirmer Confirmer
	listener  Listener

	mu           sync.Mutex
	steps        []Step
	confirmIndex int
	progress     int
	state        RunState
}

type FlowOption func(*Flow)

// WithDelay sets the pause before each stage and each contact attempt.
func WithDelay(d time.Duration) FlowOption {
	return func(f *Flow) { f.delay = d }
}

func WithConfirmer(c Confirmer) FlowOption {
	return func(f *Flow) { f.confirmer = c }
}

func WithListener(l Listener) FlowOption {
	return func(f *Flow) { f.listener = l }
}

func NewFlow(runID string, specs []StepSpec, methods []ContactMethod, opts ...FlowOption) *Flow {
	f := &Flow{
		runID:        runID,
		specs:        specs,
		confirmer:    SimulatedConfirmer(),
		confirmIndex: -1,
		state:        RunIdle,
		steps:        make([]Step, len(specs)),
	}
	for i, spec := range specs {
		f.steps[i] = Step{ID: spec.ID, Message: spec.Message, Status: StepPending}
		if spec.Confirm && f.confirmIndex < 0 {
			f.confirmIndex = i
			f.steps[i].ContactMethods = make([]ContactMethod, len(methods))
			for j, m := range methods {
				m.Status = MethodPending
				m.Details = ""
				f.steps[i].ContactMethods[j] = m
			}
		}
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Steps returns a copy of the current steps.
func (f *Flow) Steps() []Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Step, len(f.steps))
	for i, s := range f.steps {
		out[i] = s.clone()
	}
	return out
}

func (f *Flow) Progress() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress
}

func (f *Flow) State() RunState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Run executes every step in order. It stops at the first failing step,
// leaving that step in error.
func (f *Flow) Run(ctx context.Context, plan *Plan) error {
	f.mu.Lock()
	if f.state != RunIdle {
		f.mu.Unlock()
		return ErrAlreadyStarted
	}
	f.state = RunRunning
	f.mu.Unlock()

	for i, spec := range f.specs {
		if err := f.runStep(ctx, i, spec, plan); err != nil {
			f.setState(RunFailed)
			return errors.Wrapf(err, "step %s", spec.ID)
		}
	}
	f.setState(RunCompleted)
	return nil
}

func (f *Flow) runStep(ctx context.Context, i int, spec StepSpec, plan *Plan) error {
	if err := f.setStep(i, StepInProgress, "", true); err != nil {
		return err
	}
	if err := sleep(ctx, f.delay); err != nil {
		f.fail(i, cancelledDetails)
		return err
	}

	if spec.Confirm {
		return f.confirm(ctx, i, plan)
	}

	details, err := spec.Stage.Execute(ctx, plan)
	if err != nil {
		f.fail(i, err.Error())
		return err
	}
	return f.setStep(i, StepCompleted, details, false)
}

// confirm walks the contact methods in priority order and stops at the
// first one that confirms. Untried methods are skipped.
func (f *Flow) confirm(ctx context.Context, i int, plan *Plan) error {
	methods := f.Steps()[i].ContactMethods
	confirmed := -1
	var details string

	for j, m := range methods {
		if err := f.setMethod(i, j, MethodInProgress, ""); err != nil {
			return err
		}
		if j > 0 {
			if err := sleep(ctx, f.delay); err != nil {
				f.fail(i, cancelledDetails)
				return err
			}
		}
		ok, d, err := f.confirmer.Confirm(ctx, plan, m, j)
		if err != nil {
			f.fail(i, err.Error())
			return err
		}
		if ok {
			confirmed, details = j, d
			if err := f.setMethod(i, j, MethodCompleted, d); err != nil {
				return err
			}
			break
		}
		if err := f.setMethod(i, j, MethodSkipped, ""); err != nil {
			return err
		}
	}

	for j := confirmed + 1; confirmed >= 0 && j < len(methods); j++ {
		if err := f.setMethod(i, j, MethodSkipped, ""); err != nil {
			return err
		}
	}

	if confirmed < 0 {
		f.fail(i, "所有联系方式均未确认")
		return ErrNoConfirmation
	}
	return f.setStep(i, StepCompleted, details, false)
}

// SimulateError force-fails step i with the intervention message. A
// pending step passes through in_progress first; completed steps are
// left alone.
func (f *Flow) SimulateError(i int) error {
	f.mu.Lock()
	if i < 0 || i >= len(f.steps) {
		f.mu.Unlock()
		return ErrStepOutOfRange
	}
	step := &f.steps[i]
	var events []Event
	if step.Status == StepPending {
		step.Status = StepInProgress
		events = append(events, f.eventLocked(i, -1))
	}
	if !step.Status.CanTransition(StepError) {
		f.mu.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", step.Status, StepError)
	}
	step.Status = StepError
	step.Message = errorMessage
	events = append(events, f.eventLocked(i, -1))
	f.mu.Unlock()

	for _, ev := range events {
		f.emit(ev)
	}
	return nil
}

// CompleteIntervention appends one completed step recording that a
// human resolved the failure. The failed step itself is left unchanged.
func (f *Flow) CompleteIntervention() (Step, error) {
	f.mu.Lock()
	errored := false
	for _, s := range f.steps {
		if s.Status == StepError {
			errored = true
			break
		}
	}
	if !errored {
		f.mu.Unlock()
		return Step{}, ErrNoErroredStep
	}

	step := Step{
		ID:      strconv.Itoa(len(f.steps) + 1),
		Message: interventionMessage,
		Status:  StepCompleted,
	}
	f.steps = append(f.steps, step)
	ev := f.eventLocked(len(f.steps)-1, -1)
	f.mu.Unlock()

	f.emit(ev)
	return step, nil
}

// ReorderContactMethods moves the method at from to position to, the
// same way a drag and drop list does.
func (f *Flow) ReorderContactMethods(from, to int) ([]ContactMethod, error) {
	f.mu.Lock()
	if f.confirmIndex < 0 {
		f.mu.Unlock()
		return nil, ErrNoContactMethods
	}
	step := &f.steps[f.confirmIndex]
	if step.Status != StepPending {
		f.mu.Unlock()
		return nil, ErrReorderLocked
	}
	n := len(step.ContactMethods)
	if from < 0 || from >= n || to < 0 || to >= n {
		f.mu.Unlock()
		return nil, ErrMethodOutOfRange
	}

	step.ContactMethods = Move(step.ContactMethods, from, to)
	out := step.clone().ContactMethods
	ev := f.eventLocked(f.confirmIndex, -1)
	f.mu.Unlock()

	f.emit(ev)
	return out, nil
}

// Move returns a copy of items with items[from] moved to index to.
func Move[T any](items []T, from, to int) []T {
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	moved := items[from]
	out = append(out[:to], append([]T{moved}, out[to:]...)...)
	return out
}

func (f *Flow) setStep(i int, status StepStatus, details string, start bool) error {
	f.mu.Lock()
	step := &f.steps[i]
	if step.Status == StepError {
		f.mu.Unlock()
		return ErrStepErrored
	}
	if !step.Status.CanTransition(status) {
		f.mu.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "step %s: %s -> %s", step.ID, step.Status, status)
	}
	step.Status = status
	if details != "" {
		step.Details = details
	}
	if start {
		f.progress = (i + 1) * 100 / len(f.specs)
	}
	ev := f.eventLocked(i, -1)
	f.mu.Unlock()

	f.emit(ev)
	return nil
}

func (f *Flow) setMethod(i, j int, status MethodStatus, details string) error {
	f.mu.Lock()
	if f.steps[i].Status == StepError {
		f.mu.Unlock()
		return ErrStepErrored
	}
	m := &f.steps[i].ContactMethods[j]
	if !m.Status.CanTransition(status) {
		f.mu.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "method %s: %s -> %s", m.ID, m.Status, status)
	}
	m.Status = status
	if details != "" {
		m.Details = details
	}
	ev := f.eventLocked(i, j)
	f.mu.Unlock()

	f.emit(ev)
	return nil
}

// fail moves an in-progress step to error. A step already failed by
// SimulateError keeps its message.
func (f *Flow) fail(i int, details string) {
	f.mu.Lock()
	step := &f.steps[i]
	if !step.Status.CanTransition(StepError) {
		f.mu.Unlock()
		return
	}
	step.Status = StepError
	if details != "" {
		step.Details = details
	}
	ev := f.eventLocked(i, -1)
	f.mu.Unlock()

	f.emit(ev)
}

func (f *Flow) setState(s RunState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Flow) eventLocked(i, j int) Event {
	return Event{
		RunID:       f.runID,
		StepIndex:   i,
		MethodIndex: j,
		Step:        f.steps[i].clone(),
		Progress:    f.progress,
		State:       f.state,
	}
}

func (f *Flow) emit(ev Event) {
	if f.listener != nil {
		f.listener.OnEvent(ev)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
