package scheduling

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Mode selects how the meeting request is collected.
type Mode string

const (
	ModeNatural Mode = "natural"
	ModeForm    Mode = "form"
)

const (
	dateLayout      = "2006-01-02"
	clockLayout     = "15:04"
	defaultDuration = time.Hour
	maxTitleRunes   = 40
)

// FormInput mirrors the manual scheduling form.
type FormInput struct {
	Title        string   `json:"title"`
	Participants []string `json:"participants"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Duration     int      `json:"duration"` // minutes
	Description  string   `json:"description"`
}

// StartRequest starts a scheduling run in either mode.
type StartRequest struct {
	Mode           Mode       `json:"mode"`
	Message        string     `json:"message,omitempty"`
	Form           *FormInput `json:"form,omitempty"`
	ContactMethods []string   `json:"contact_methods,omitempty"`
}

// Plan is the working state a run's stages read and fill in.
type Plan struct {
	Mode         Mode
	Title        string
	Participants []string
	Start        *time.Time // requested start, if any
	Duration     time.Duration
	Description  string

	// Filled by stages.
	Emails map[string]string
	Free   map[string][]Slot
	Slot   *Slot
}

func (p *Plan) email(name string) string {
	if p.Emails == nil {
		return ""
	}
	return p.Emails[name]
}

// Collector turns a StartRequest into a Plan.
type Collector interface {
	Collect(ctx context.Context, req StartRequest) (*Plan, error)
}

// FormCollector validates the structured form fields.
type FormCollector struct {
	Location *time.Location
}

func (c FormCollector) Collect(_ context.Context, req StartRequest) (*Plan, error) {
	f := req.Form
	if f == nil {
		return nil, errors.Wrap(ErrInvalidRequest, "form is required")
	}
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return nil, errors.Wrap(ErrInvalidRequest, "title is required")
	}
	participants := cleanNames(f.Participants)
	if len(participants) == 0 {
		return nil, errors.Wrap(ErrInvalidRequest, "participants are required")
	}
	if f.Duration <= 0 {
		return nil, errors.Wrap(ErrInvalidRequest, "duration must be positive")
	}

	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	start, err := time.ParseInLocation(dateLayout+" "+clockLayout, strings.TrimSpace(f.Date)+" "+strings.TrimSpace(f.Time), loc)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidRequest, "date must be YYYY-MM-DD and time HH:MM")
	}

	return &Plan{
		Mode:         ModeForm,
		Title:        title,
		Participants: participants,
		Start:        &start,
		Duration:     time.Duration(f.Duration) * time.Minute,
		Description:  strings.TrimSpace(f.Description),
	}, nil
}

// Extractor pulls meeting fields out of free text.
type Extractor interface {
	Extract(ctx context.Context, message string) (*FormInput, error)
}

// NaturalCollector collects a Plan from a chat message. It asks the
// Extractor first and falls back to matching known participant names.
type NaturalCollector struct {
	Extractor Extractor
	Directory Directory
	Location  *time.Location
}

func (c NaturalCollector) Collect(ctx context.Context, req StartRequest) (*Plan, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, errors.Wrap(ErrInvalidRequest, "message is required")
	}

	if c.Extractor != nil {
		if f, err := c.Extractor.Extract(ctx, message); err == nil && f != nil {
			if plan, err := c.fromExtracted(f, message); err == nil {
				return plan, nil
			}
		}
	}

	plan := &Plan{
		Mode:        ModeNatural,
		Title:       truncateRunes(message, maxTitleRunes),
		Duration:    defaultDuration,
		Description: message,
	}
	if c.Directory != nil {
		names, err := c.Directory.Names(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "list participants")
		}
		for _, name := range names {
			if strings.Contains(message, name) {
				plan.Participants = append(plan.Participants, name)
			}
		}
	}
	return plan, nil
}

func (c NaturalCollector) fromExtracted(f *FormInput, message string) (*Plan, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return nil, ErrInvalidRequest
	}
	plan := &Plan{
		Mode:         ModeNatural,
		Title:        title,
		Participants: cleanNames(f.Participants),
		Duration:     defaultDuration,
		Description:  message,
	}
	if f.Duration > 0 {
		plan.Duration = time.Duration(f.Duration) * time.Minute
	}
	if f.Date != "" && f.Time != "" {
		loc := c.Location
		if loc == nil {
			loc = time.Local
		}
		if start, err := time.ParseInLocation(dateLayout+" "+clockLayout, f.Date+" "+f.Time, loc); err == nil {
			plan.Start = &start
		}
	}
	return plan, nil
}

// MultiCollector dispatches on the request mode.
type MultiCollector struct {
	Natural Collector
	Form    Collector
}

func (m MultiCollector) Collect(ctx context.Context, req StartRequest) (*Plan, error) {
	switch req.Mode {
	case ModeNatural:
		return m.Natural.Collect(ctx, req)
	case ModeForm, "":
		return m.Form.Collect(ctx, req)
	default:
		return nil, errors.Wrapf(ErrInvalidRequest, "unknown mode %q", req.Mode)
	}
}

// SplitParticipants splits the comma separated participants field.
func SplitParticipants(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '，' || r == '、'
	})
	return cleanNames(fields)
}

func cleanNames(names []string) []string {
	var out []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
