package scheduling

import (
	"time"

	"github.com/pkg/errors"
)

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepError      StepStatus = "error"
)

type MethodStatus string

const (
	MethodPending    MethodStatus = "pending"
	MethodInProgress MethodStatus = "in_progress"
	MethodCompleted  MethodStatus = "completed"
	MethodSkipped    MethodStatus = "skipped"
)

var stepTransitions = map[StepStatus][]StepStatus{
	StepPending:    {StepInProgress},
	StepInProgress: {StepCompleted, StepError},
}

var methodTransitions = map[MethodStatus][]MethodStatus{
	MethodPending:    {MethodInProgress, MethodSkipped},
	MethodInProgress: {MethodCompleted, MethodSkipped},
}

// CanTransition reports whether a step may move from s to next.
func (s StepStatus) CanTransition(next StepStatus) bool {
	for _, allowed := range stepTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s MethodStatus) CanTransition(next MethodStatus) bool {
	for _, allowed := range methodTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStepOutOfRange    = errors.New("step index out of range")
	ErrMethodOutOfRange  = errors.New("contact method index out of range")
	ErrNoErroredStep     = errors.New("no step is waiting for manual intervention")
	ErrReorderLocked     = errors.New("contact methods can only be reordered before confirmation starts")
	ErrNoContactMethods  = errors.New("flow has no confirmation step")
	ErrAlreadyStarted    = errors.New("run already started")
	ErrStepErrored       = errors.New("step was marked as failed")
	ErrNoConfirmation    = errors.New("no contact method confirmed the meeting")
	ErrRunNotFound       = errors.New("run not found")
	ErrInvalidRequest    = errors.New("invalid scheduling request")
)

// ContactMethod is a channel tried during the confirmation step.
type ContactMethod struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Status  MethodStatus `json:"status"`
	Details string       `json:"details,omitempty"`
}

// Step is one stage of the scheduling progress shown to the user.
type Step struct {
	ID             string          `json:"id"`
	Message        string          `json:"message"`
	Status         StepStatus      `json:"status"`
	ContactMethods []ContactMethod `json:"contactMethods,omitempty"`
	Details        string          `json:"details,omitempty"`
}

func (s Step) clone() Step {
	if s.ContactMethods != nil {
		methods := make([]ContactMethod, len(s.ContactMethods))
		copy(methods, s.ContactMethods)
		s.ContactMethods = methods
	}
	return s
}

// DefaultContactMethods returns the channels in their default priority order.
func DefaultContactMethods() []ContactMethod {
	return []ContactMethod{
		{ID: "email", Name: "邮件", Status: MethodPending},
		{ID: "im", Name: "IM", Status: MethodPending},
		{ID: "sms", Name: "短信", Status: MethodPending},
		{ID: "phone", Name: "电话", Status: MethodPending},
	}
}

// ContactMethodsByID orders the default methods by ids. Every id must be
// known and appear once; an empty list returns the default order.
func ContactMethodsByID(ids []string) ([]ContactMethod, error) {
	defaults := DefaultContactMethods()
	if len(ids) == 0 {
		return defaults, nil
	}

	byID := make(map[string]ContactMethod, len(defaults))
	for _, m := range defaults {
		byID[m.ID] = m
	}

	methods := make([]ContactMethod, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, errors.Wrapf(ErrInvalidRequest, "unknown contact method %q", id)
		}
		if seen[id] {
			return nil, errors.Wrapf(ErrInvalidRequest, "duplicate contact method %q", id)
		}
		seen[id] = true
		methods = append(methods, m)
	}
	return methods, nil
}

type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// Event is reported to a Listener after every status change.
type Event struct {
	RunID       string   `json:"run_id"`
	StepIndex   int      `json:"step_index"`
	MethodIndex int      `json:"method_index"` // -1 when the step itself changed
	Step        Step     `json:"step"`
	Progress    int      `json:"progress"`
	State       RunState `json:"state"`
}

type Listener interface {
	OnEvent(Event)
}

type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

// Slot is a time window.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}
