package scheduling

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const fallbackEmail = "example@company.com"

// Participant is what the directory knows about one attendee.
type Participant struct {
	Name  string
	Email string
	Free  []Slot
}

// Directory resolves participant names to contact info and free slots.
type Directory interface {
	// Lookup returns nil, nil for unknown names.
	Lookup(ctx context.Context, name string) (*Participant, error)
	Names(ctx context.Context) ([]string, error)
}

// MeetingSink persists the meeting once invitations are sent.
type MeetingSink interface {
	SaveScheduled(ctx context.Context, plan *Plan) error
}

// Stage performs the work of one step and returns its detail line.
type Stage interface {
	Execute(ctx context.Context, plan *Plan) (string, error)
}

type StageFunc func(ctx context.Context, plan *Plan) (string, error)

func (f StageFunc) Execute(ctx context.Context, plan *Plan) (string, error) { return f(ctx, plan) }

// Confirmer attempts to confirm the meeting over one contact method.
type Confirmer interface {
	Confirm(ctx context.Context, plan *Plan, method ContactMethod, index int) (bool, string, error)
}

type ConfirmerFunc func(ctx context.Context, plan *Plan, method ContactMethod, index int) (bool, string, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, plan *Plan, method ContactMethod, index int) (bool, string, error) {
	return f(ctx, plan, method, index)
}

// StepSpec describes one step of a flow. Exactly one spec may set
// Confirm, which makes the flow fan out over its contact methods
// instead of calling Stage.
type StepSpec struct {
	ID      string
	Message string
	Stage   Stage
	Confirm bool
}

// DefaultSteps builds the five scheduling steps.
func DefaultSteps(dir Directory, sink MeetingSink) []StepSpec {
	return []StepSpec{
		{ID: "1", Message: "正在解析会议需求", Stage: StageFunc(parseStage)},
		{ID: "2", Message: "检查参与者日程", Stage: availabilityStage(dir)},
		{ID: "3", Message: "寻找合适的时间段", Stage: StageFunc(slotStage)},
		{ID: "4", Message: "与参与者确认会议", Confirm: true},
		{ID: "5", Message: "发送会议邀请", Stage: inviteStage(sink)},
	}
}

func parseStage(_ context.Context, plan *Plan) (string, error) {
	if len(plan.Participants) == 0 {
		return fmt.Sprintf("已解析：%s，参与者待定", plan.Title), nil
	}
	return fmt.Sprintf("已解析：%s，参与者为%s", plan.Title, joinNames(plan.Participants)), nil
}

func availabilityStage(dir Directory) StageFunc {
	return func(ctx context.Context, plan *Plan) (string, error) {
		plan.Emails = make(map[string]string)
		plan.Free = make(map[string][]Slot)

		var lines []string
		for _, name := range plan.Participants {
			var p *Participant
			if dir != nil {
				var err error
				p, err = dir.Lookup(ctx, name)
				if err != nil {
					return "", errors.Wrapf(err, "look up %s", name)
				}
			}
			if p == nil {
				lines = append(lines, fmt.Sprintf("%s：日程未知", name))
				continue
			}
			plan.Emails[name] = p.Email
			plan.Free[name] = p.Free
			if len(p.Free) == 0 {
				lines = append(lines, fmt.Sprintf("%s：暂无可用时间", name))
				continue
			}
			var slots []string
			for _, s := range p.Free {
				slots = append(slots, formatSlot(s))
			}
			lines = append(lines, fmt.Sprintf("%s：%s 可用", name, strings.Join(slots, "、")))
		}
		if len(lines) == 0 {
			return "未指定参与者", nil
		}
		return strings.Join(lines, "\n"), nil
	}
}

// slotStage keeps a requested start as is and names anyone who is busy
// then. Only without a requested start does it pick the earliest common
// free window.
func slotStage(_ context.Context, plan *Plan) (string, error) {
	if plan.Start != nil {
		want := Slot{Start: *plan.Start, End: plan.Start.Add(plan.Duration)}
		plan.Slot = &want
		busy := busyParticipants(want, plan)
		if len(busy) == 0 {
			return "建议时间段：" + formatSlot(want), nil
		}
		return fmt.Sprintf("建议时间段：%s（%s在该时间段不空闲）", formatSlot(want), joinNames(busy)), nil
	}

	var calendars [][]Slot
	for _, name := range plan.Participants {
		if free, ok := plan.Free[name]; ok {
			calendars = append(calendars, free)
		}
	}
	if len(calendars) == 0 {
		return "建议时间段：待定", nil
	}
	slot, ok := FindCommonSlot(calendars, plan.Duration)
	if !ok {
		return "", errors.New("未找到所有参与者都空闲的时间段")
	}
	plan.Slot = &slot
	return "建议时间段：" + formatSlot(slot), nil
}

// busyParticipants lists the participants with a known calendar that has
// no free slot covering want.
func busyParticipants(want Slot, plan *Plan) []string {
	var busy []string
	for _, name := range plan.Participants {
		free, ok := plan.Free[name]
		if !ok {
			continue
		}
		if !fits(want, free) {
			busy = append(busy, name)
		}
	}
	return busy
}

func inviteStage(sink MeetingSink) StageFunc {
	return func(ctx context.Context, plan *Plan) (string, error) {
		if sink != nil {
			if err := sink.SaveScheduled(ctx, plan); err != nil {
				return "", errors.Wrap(err, "save meeting")
			}
		}
		return "已发送会议邀请至 " + strings.Join(recipients(plan), ", "), nil
	}
}

// SimulatedConfirmer confirms on the first method only; later methods
// are never reached because the flow stops at the first confirmation.
func SimulatedConfirmer() Confirmer {
	return ConfirmerFunc(func(_ context.Context, plan *Plan, method ContactMethod, index int) (bool, string, error) {
		if index != 0 {
			return false, "", nil
		}
		return true, fmt.Sprintf("已通过%s确认：%s", method.Name, recipients(plan)[0]), nil
	})
}

func recipients(plan *Plan) []string {
	var out []string
	for _, name := range plan.Participants {
		if e := plan.email(name); e != "" {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		out = append(out, fallbackEmail)
	}
	return out
}

// FindCommonSlot returns the earliest window of length d inside a free
// slot of every calendar.
func FindCommonSlot(calendars [][]Slot, d time.Duration) (Slot, bool) {
	if len(calendars) == 0 || d <= 0 {
		return Slot{}, false
	}
	common := sortedSlots(calendars[0])
	for _, cal := range calendars[1:] {
		common = intersect(common, sortedSlots(cal))
		if len(common) == 0 {
			return Slot{}, false
		}
	}
	for _, s := range common {
		if s.Duration() >= d {
			return Slot{Start: s.Start, End: s.Start.Add(d)}, true
		}
	}
	return Slot{}, false
}

func intersect(a, b []Slot) []Slot {
	var out []Slot
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := later(a[i].Start, b[j].Start)
		end := earlier(a[i].End, b[j].End)
		if start.Before(end) {
			out = append(out, Slot{Start: start, End: end})
		}
		if a[i].End.Before(b[j].End) {
			i++
		} else {
			j++
		}
	}
	return out
}

func fits(want Slot, free []Slot) bool {
	for _, s := range free {
		if !want.Start.Before(s.Start) && !want.End.After(s.End) {
			return true
		}
	}
	return false
}

func sortedSlots(in []Slot) []Slot {
	out := make([]Slot, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

var weekdays = [...]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

func formatSlot(s Slot) string {
	return fmt.Sprintf("%s %s %s-%s", s.Start.Format("01-02"), weekdays[s.Start.Weekday()],
		s.Start.Format(clockLayout), s.End.Format(clockLayout))
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], "、") + "和" + names[len(names)-1]
	}
}
