package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"meeting-assistant/internal/models"
	pkgmodels "meeting-assistant/pkg/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closedServerURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestFetchMeetings_Classification(t *testing.T) {
	t.Run("network unreachable", func(t *testing.T) {
		_, err := New(closedServerURL()).FetchMeetings(context.Background())
		require.Error(t, err)
		assert.Equal(t, "无法连接到服务器，请检查网络连接或稍后重试。", err.Error())
	})

	t.Run("server status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := New(srv.URL).FetchMeetings(context.Background())
		require.Error(t, err)
		assert.Equal(t, "服务器错误: 500", err.Error())
		var re *RequestError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, KindStatus, re.Kind)
	})

	t.Run("unexpected body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>"))
		}))
		defer srv.Close()

		_, err := New(srv.URL).FetchMeetings(context.Background())
		require.Error(t, err)
		assert.Equal(t, "发生意外错误，请稍后重试。", err.Error())
	})
}

func TestClient_Calls(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/meetings", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var req pkgmodels.MeetingRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			json.NewEncoder(w).Encode(models.Meeting{ID: "m1", Title: req.Title, Participants: req.Participants, Status: "upcoming"})
			return
		}
		json.NewEncoder(w).Encode([]models.Meeting{{ID: "m1", Title: "周会"}})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pkgmodels.ChatResponse{Response: "hi"})
	})
	mux.HandleFunc("/end_dialogue", func(w http.ResponseWriter, r *http.Request) {
		var req pkgmodels.EndDialogueRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, pkgmodels.DialogueUserInitiated, req.Type)
		w.Write([]byte(`{"summary":{"status":"completed"},"status":"success"}`))
	})
	mux.HandleFunc("/api/mock/users/2/schedule", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"user_id":"2","start":"2025-01-07T14:00:00+08:00","end":"2025-01-07T18:00:00+08:00"}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := New(srv.URL + "/")
	ctx := context.Background()

	meetings, err := c.FetchMeetings(ctx)
	require.NoError(t, err)
	require.Len(t, meetings, 1)

	m, err := c.CreateMeeting(ctx, pkgmodels.MeetingRequest{Title: "评审", Participants: []string{"张三"}})
	require.NoError(t, err)
	assert.Equal(t, "评审", m.Title)

	reply, err := c.Chat(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", reply)

	resp, err := c.EndDialogue(ctx, pkgmodels.DialogueUserInitiated)
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)

	slots, err := c.GetUserSchedule(ctx, "2")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 14, slots[0].Start.Hour())

	_, err = c.GetMockUsers(ctx)
	assert.EqualError(t, err, "服务器错误: 404")
}
