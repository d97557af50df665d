package apiclient

import (
	"context"
	"sync"

	"meeting-assistant/internal/models"

	"github.com/pkg/errors"
)

// MeetingFetcher is the part of Client the meeting list needs.
type MeetingFetcher interface {
	FetchMeetings(ctx context.Context) ([]models.Meeting, error)
}

// MeetingList holds the meeting page state: one fetch, a classified error
// message and a manual retry.
type MeetingList struct {
	fetcher MeetingFetcher

	mu       sync.Mutex
	loading  bool
	meetings []models.Meeting
	errMsg   string
}

func NewMeetingList(f MeetingFetcher) *MeetingList {
	return &MeetingList{fetcher: f}
}

// Load fetches the meetings once. On failure the previous list is cleared
// and Error reports the classified message.
func (l *MeetingList) Load(ctx context.Context) error {
	l.mu.Lock()
	l.loading = true
	l.errMsg = ""
	l.mu.Unlock()

	meetings, err := l.fetcher.FetchMeetings(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	if err != nil {
		l.meetings = nil
		l.errMsg = errorMessage(err)
		return err
	}
	l.meetings = meetings
	return nil
}

// Retry is the manual retry affordance.
func (l *MeetingList) Retry(ctx context.Context) error {
	return l.Load(ctx)
}

func (l *MeetingList) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Error is the message to show, or "" after a successful load.
func (l *MeetingList) Error() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errMsg
}

func (l *MeetingList) Upcoming() []models.Meeting {
	return l.filter(models.MeetingUpcoming)
}

func (l *MeetingList) Past() []models.Meeting {
	return l.filter(models.MeetingPast)
}

// Cancel drops an upcoming meeting from the local list only. It reports
// whether the meeting was found.
func (l *MeetingList) Cancel(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, m := range l.meetings {
		if m.ID == id && m.Status == models.MeetingUpcoming {
			l.meetings = append(l.meetings[:i:i], l.meetings[i+1:]...)
			return true
		}
	}
	return false
}

func (l *MeetingList) filter(status string) []models.Meeting {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Meeting
	for _, m := range l.meetings {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out
}

func errorMessage(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Error()
	}
	return MsgUnexpected
}
