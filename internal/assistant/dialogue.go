package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"meeting-assistant/internal/completion"
	pkgmodels "meeting-assistant/pkg/models"

	"github.com/pkg/errors"
)

var ErrUnknownDialogue = errors.New("unknown dialogue type")

// Turn is one line of a dialogue transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SummaryBody struct {
	Purpose      string   `json:"purpose"`
	Participants []string `json:"participants"`
	Description  string   `json:"description"`
}

type Summary struct {
	Type    string      `json:"type"`
	Status  string      `json:"status"`
	Summary SummaryBody `json:"summary"`
}

// Dialogue keeps one running conversation with the completion backend.
type Dialogue struct {
	kind      string
	prompt    string
	completer completion.Completer

	mu       sync.Mutex
	history  []Turn
	complete bool
}

func newDialogue(kind, prompt string, c completion.Completer) *Dialogue {
	return &Dialogue{kind: kind, prompt: prompt, completer: c}
}

// Reply records message, asks the backend for the next assistant line and
// returns it without the completion marker.
func (d *Dialogue) Reply(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message is empty")
	}

	d.mu.Lock()
	d.history = append(d.history, Turn{Role: pkgmodels.MessageUser, Content: message})
	prompt := d.transcriptLocked(d.prompt) + "助手: "
	d.mu.Unlock()

	text, err := d.completer.Complete(ctx, prompt)
	if err != nil {
		return "", errors.Wrap(err, "dialogue reply")
	}

	done := strings.Contains(text, completeMarker)
	reply := strings.TrimSpace(strings.ReplaceAll(text, completeMarker, ""))

	d.mu.Lock()
	d.history = append(d.history, Turn{Role: pkgmodels.MessageAssistant, Content: reply})
	if done {
		d.complete = true
	}
	d.mu.Unlock()
	return reply, nil
}

// Summarize asks the backend for a JSON summary of the transcript. A
// reply without JSON is kept as the description.
func (d *Dialogue) Summarize(ctx context.Context) (*Summary, error) {
	d.mu.Lock()
	prompt := d.transcriptLocked(summaryPrompt)
	d.mu.Unlock()

	text, err := d.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, errors.Wrap(err, "summarize dialogue")
	}

	s := &Summary{Type: d.summaryType(), Status: "collecting"}
	if raw, ok := completion.JSONObject(text); ok && json.Unmarshal([]byte(raw), s) == nil {
		return s, nil
	}
	s.Summary.Description = strings.TrimSpace(text)
	return s, nil
}

func (d *Dialogue) History() []Turn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Turn(nil), d.history...)
}

func (d *Dialogue) Complete() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.complete
}

func (d *Dialogue) Reset() {
	d.mu.Lock()
	d.history = nil
	d.complete = false
	d.mu.Unlock()
}

func (d *Dialogue) summaryType() string {
	if d.kind == pkgmodels.DialogueSystemInitiated {
		return "coordination_dialogue"
	}
	return "initial_dialogue"
}

func (d *Dialogue) transcriptLocked(header string) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	for _, t := range d.history {
		if t.Role == pkgmodels.MessageUser {
			sb.WriteString("用户: ")
		} else {
			sb.WriteString("助手: ")
		}
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Assistant holds the user-initiated and the coordination dialogues.
type Assistant struct {
	Completer completion.Completer
	dialogues map[string]*Dialogue
}

func New(c completion.Completer) *Assistant {
	return &Assistant{
		Completer: c,
		dialogues: map[string]*Dialogue{
			pkgmodels.DialogueUserInitiated:   newDialogue(pkgmodels.DialogueUserInitiated, dialoguePrompt, c),
			pkgmodels.DialogueSystemInitiated: newDialogue(pkgmodels.DialogueSystemInitiated, coordinationPrompt, c),
		},
	}
}

// Dialogue returns the dialogue for kind; empty means user initiated.
func (a *Assistant) Dialogue(kind string) (*Dialogue, error) {
	if kind == "" {
		kind = pkgmodels.DialogueUserInitiated
	}
	d, ok := a.dialogues[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDialogue, "%q", kind)
	}
	return d, nil
}
