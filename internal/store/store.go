package store

import (
	"context"
	"time"

	"meeting-assistant/internal/models"
	"meeting-assistant/internal/scheduling"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// Store wraps the gorm handle with the queries the API and the
// scheduling flow need.
type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- Meetings ---

func (s *Store) ListMeetings(ctx context.Context) ([]models.Meeting, error) {
	var meetings []models.Meeting
	if err := s.DB.WithContext(ctx).Order("meeting_date ASC, meeting_time ASC, created_at DESC").Find(&meetings).Error; err != nil {
		return nil, errors.Wrap(err, "list meetings")
	}
	if meetings == nil {
		meetings = []models.Meeting{}
	}
	return meetings, nil
}

func (s *Store) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	var m models.Meeting
	if err := s.DB.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *Store) CreateMeeting(ctx context.Context, m *models.Meeting) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = models.MeetingUpcoming
	}
	if m.Participants == nil {
		m.Participants = []string{}
	}
	return errors.Wrap(s.DB.WithContext(ctx).Create(m).Error, "create meeting")
}

func (s *Store) UpdateMeeting(ctx context.Context, m *models.Meeting) error {
	return errors.Wrap(s.DB.WithContext(ctx).Save(m).Error, "update meeting")
}

func (s *Store) DeleteMeeting(ctx context.Context, id string) error {
	result := s.DB.WithContext(ctx).Delete(&models.Meeting{}, "id = ?", id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "delete meeting")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveScheduled stores the meeting produced by a finished scheduling run.
func (s *Store) SaveScheduled(ctx context.Context, plan *scheduling.Plan) error {
	m := &models.Meeting{
		Title:        plan.Title,
		Participants: plan.Participants,
		Duration:     int(plan.Duration / time.Minute),
		Description:  plan.Description,
	}
	start := plan.Start
	if plan.Slot != nil {
		start = &plan.Slot.Start
		m.Duration = int(plan.Slot.Duration() / time.Minute)
	}
	if start != nil {
		m.Date = start.Format("2006-01-02")
		m.Time = start.Format("15:04")
	}
	return s.CreateMeeting(ctx, m)
}

// --- Mock users ---

func (s *Store) ListUsers(ctx context.Context) ([]models.MockUser, error) {
	var users []models.MockUser
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "list mock users")
	}
	if users == nil {
		users = []models.MockUser{}
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.MockUser, error) {
	var u models.MockUser
	err := s.DB.WithContext(ctx).
		Preload("Availability", func(db *gorm.DB) *gorm.DB { return db.Order("starts_at ASC") }).
		First(&u, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) Conversation(ctx context.Context, userID string) ([]models.ConversationMessage, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	var msgs []models.ConversationMessage
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "load conversation")
	}
	if msgs == nil {
		msgs = []models.ConversationMessage{}
	}
	return msgs, nil
}

func (s *Store) AppendConversation(ctx context.Context, msg *models.ConversationMessage) error {
	return errors.Wrap(s.DB.WithContext(ctx).Create(msg).Error, "append conversation")
}

// --- scheduling.Directory ---

func (s *Store) Lookup(ctx context.Context, name string) (*scheduling.Participant, error) {
	var u models.MockUser
	err := s.DB.WithContext(ctx).
		Preload("Availability", func(db *gorm.DB) *gorm.DB { return db.Order("starts_at ASC") }).
		Where("name = ? OR id = ?", name, name).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "look up participant")
	}

	p := &scheduling.Participant{Name: u.Name, Email: u.Email}
	for _, a := range u.Availability {
		p.Free = append(p.Free, scheduling.Slot{Start: a.Start, End: a.End})
	}
	return p, nil
}

func (s *Store) Names(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.DB.WithContext(ctx).Model(&models.MockUser{}).Order("id ASC").Pluck("name", &names).Error; err != nil {
		return nil, errors.Wrap(err, "list participant names")
	}
	return names, nil
}
