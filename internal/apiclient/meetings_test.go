package apiclient

import (
	"context"
	"net/http"
	"testing"

	"meeting-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetcherFunc func(ctx context.Context) ([]models.Meeting, error)

func (f fetcherFunc) FetchMeetings(ctx context.Context) ([]models.Meeting, error) { return f(ctx) }

func TestMeetingList_RetryAfterFailure(t *testing.T) {
	calls := 0
	list := NewMeetingList(fetcherFunc(func(context.Context) ([]models.Meeting, error) {
		calls++
		if calls == 1 {
			return nil, &RequestError{Kind: KindStatus, StatusCode: http.StatusBadGateway}
		}
		return []models.Meeting{
			{ID: "1", Title: "周会", Status: models.MeetingUpcoming},
			{ID: "2", Title: "复盘", Status: models.MeetingPast},
			{ID: "3", Title: "面试", Status: models.MeetingUpcoming},
		}, nil
	}))

	require.Error(t, list.Load(context.Background()))
	assert.Equal(t, "服务器错误: 502", list.Error())
	assert.Empty(t, list.Upcoming())
	assert.False(t, list.Loading())

	require.NoError(t, list.Retry(context.Background()))
	assert.Empty(t, list.Error())
	assert.Len(t, list.Upcoming(), 2)
	require.Len(t, list.Past(), 1)
	assert.Equal(t, "复盘", list.Past()[0].Title)
	assert.Equal(t, 2, calls)
}

func TestMeetingList_Cancel(t *testing.T) {
	list := NewMeetingList(fetcherFunc(func(context.Context) ([]models.Meeting, error) {
		return []models.Meeting{
			{ID: "1", Status: models.MeetingUpcoming},
			{ID: "2", Status: models.MeetingPast},
		}, nil
	}))
	require.NoError(t, list.Load(context.Background()))

	assert.False(t, list.Cancel("2"))
	assert.False(t, list.Cancel("missing"))
	assert.True(t, list.Cancel("1"))
	assert.Empty(t, list.Upcoming())
	assert.Len(t, list.Past(), 1)
}

func TestMeetingList_UnclassifiedError(t *testing.T) {
	list := NewMeetingList(fetcherFunc(func(context.Context) ([]models.Meeting, error) {
		return nil, assert.AnError
	}))
	require.Error(t, list.Load(context.Background()))
	assert.Equal(t, MsgUnexpected, list.Error())
}
