package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"meeting-assistant/internal/assistant"
	"meeting-assistant/internal/completion"
	"meeting-assistant/internal/config"
	"meeting-assistant/internal/database"
	"meeting-assistant/internal/models"
	"meeting-assistant/internal/scheduling"
	"meeting-assistant/internal/store"
	pkgmodels "meeting-assistant/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	router  *gin.Engine
	store   *store.Store
	manager *scheduling.Manager
}

func newTestServer(t *testing.T, completer completion.Completer, delay time.Duration) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "api.db")}
	db, err := database.InitGorm(cfg, zap.NewNop())
	require.NoError(t, err)
	users, err := database.LoadFixtures("")
	require.NoError(t, err)
	_, err = database.SeedMockUsers(db, users)
	require.NoError(t, err)

	s := store.New(db)
	manager := scheduling.NewManager(scheduling.Options{
		Directory: s,
		Sink:      s,
		Delay:     delay,
		Location:  time.FixedZone("CST", 8*3600),
	})
	t.Cleanup(func() { manager.Shutdown(context.Background()) })

	router := SetupRouter(Deps{
		Store:     s,
		Completer: completer,
		Assistant: assistant.New(completer),
		Manager:   manager,
	})
	return &testServer{router: router, store: s, manager: manager}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func staticCompleter(text string) completion.Completer {
	return completion.CompleterFunc(func(context.Context, string) (string, error) { return text, nil })
}

func TestChatProxy(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ts := newTestServer(t, staticCompleter("Hi there"), 0)
		w := ts.do(t, http.MethodPost, "/api/chat", gin.H{"message": "hello"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"response":"Hi there"}`, w.Body.String())
	})

	t.Run("upstream failure", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer upstream.Close()

		ts := newTestServer(t, completion.NewOpenAI(completion.OpenAIConfig{BaseURL: upstream.URL, APIKey: "k"}), 0)
		w := ts.do(t, http.MethodPost, "/api/chat", gin.H{"message": "hello"})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Error calling OpenAI API"}`, w.Body.String())
	})

	t.Run("missing message", func(t *testing.T) {
		ts := newTestServer(t, staticCompleter("x"), 0)
		w := ts.do(t, http.MethodPost, "/api/chat", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDialogueRoutes(t *testing.T) {
	ts := newTestServer(t, staticCompleter(`{"type":"initial_dialogue","status":"completed","summary":{"purpose":"周会","participants":["张三"],"description":""}}`), 0)

	w := ts.do(t, http.MethodPost, "/chat", gin.H{"message": "帮我约张三开周会"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/end_dialogue", gin.H{"type": "user_initiated"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Status  string            `json:"status"`
		Summary assistant.Summary `json:"summary"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "周会", resp.Summary.Summary.Purpose)

	w = ts.do(t, http.MethodPost, "/end_dialogue", gin.H{"type": "group"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	failing := newTestServer(t, completion.CompleterFunc(func(context.Context, string) (string, error) {
		return "", errors.New("down")
	}), 0)
	w = failing.do(t, http.MethodPost, "/end_dialogue", gin.H{"type": "system_initiated"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"response":"总结对话时出现错误。","status":"error"}`, w.Body.String())
}

func TestDialogueRoutes_StatusAndReset(t *testing.T) {
	replies := []string{
		"请问会议安排在什么时候？",
		"好的，周三下午三点。[DIALOGUE_COMPLETE]",
		`{"type":"initial_dialogue","status":"completed","summary":{"purpose":"周会","participants":["张三"],"description":"周三下午三点"}}`,
		"您好，请问要安排什么会议？",
	}
	var prompts []string
	ts := newTestServer(t, completion.CompleterFunc(func(_ context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return replies[len(prompts)-1], nil
	}), 0)

	chat := func(message string) pkgmodels.ChatResponse {
		w := ts.do(t, http.MethodPost, "/chat", gin.H{"message": message})
		require.Equal(t, http.StatusOK, w.Code)
		var resp pkgmodels.ChatResponse
		decode(t, w, &resp)
		return resp
	}

	first := chat("帮我约张三开周会")
	assert.Equal(t, pkgmodels.ChatContinue, first.Status)

	second := chat("周三下午三点")
	assert.Equal(t, pkgmodels.ChatComplete, second.Status)
	assert.Equal(t, "好的，周三下午三点。", second.Response)

	w := ts.do(t, http.MethodPost, "/end_dialogue", gin.H{"type": "user_initiated"})
	require.Equal(t, http.StatusOK, w.Code)

	third := chat("再约一个会")
	assert.Equal(t, pkgmodels.ChatContinue, third.Status)
	require.Len(t, prompts, 4)
	assert.NotContains(t, prompts[3], "帮我约张三开周会")
	assert.Contains(t, prompts[3], "再约一个会")
}

func TestMeetingRoutes(t *testing.T) {
	ts := newTestServer(t, staticCompleter("x"), 0)

	w := ts.do(t, http.MethodGet, "/meetings", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/meetings", gin.H{"title": "周会"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/meetings", gin.H{"title": "周会", "participants": []string{"张三", "李四"}, "date": "2025-01-08", "time": "14:00", "duration": 30})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Meeting
	decode(t, w, &created)
	assert.Equal(t, models.MeetingUpcoming, created.Status)

	w = ts.do(t, http.MethodPut, "/meetings/"+created.ID, gin.H{"status": "past"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.Meeting
	decode(t, w, &updated)
	assert.Equal(t, models.MeetingPast, updated.Status)
	assert.Equal(t, "周会", updated.Title)

	w = ts.do(t, http.MethodPut, "/meetings/"+created.ID, gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/meetings/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/meetings/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/meetings/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMockRoutes(t *testing.T) {
	ts := newTestServer(t, staticCompleter("x"), 0)

	w := ts.do(t, http.MethodGet, "/api/mock/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []models.MockUser
	decode(t, w, &users)
	assert.Len(t, users, 4)

	w = ts.do(t, http.MethodGet, "/api/mock/users/2/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var slots []models.Availability
	decode(t, w, &slots)
	assert.Len(t, slots, 2)

	w = ts.do(t, http.MethodGet, "/api/mock/users/99/schedule", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, ts.store.AppendConversation(context.Background(), &models.ConversationMessage{UserID: "1", Role: "user", Content: "周一有空"}))
	w = ts.do(t, http.MethodGet, "/api/mock/conversation/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []models.ConversationMessage
	decode(t, w, &msgs)
	require.Len(t, msgs, 1)
	assert.Equal(t, "周一有空", msgs[0].Content)

	w = ts.do(t, http.MethodGet, "/api/mock/conversation/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, staticCompleter("x"), 0)
	w := ts.do(t, http.MethodOptions, "/meetings", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestScheduleRoutes_FormRunCompletes(t *testing.T) {
	ts := newTestServer(t, staticCompleter("x"), 0)

	w := ts.do(t, http.MethodPost, "/api/schedule/runs", gin.H{
		"mode": "form",
		"form": gin.H{
			"title":        "面试",
			"participants": []string{"面试官A", "候选人B"},
			"date":         "2025-01-07",
			"time":         "15:00",
			"duration":     60,
		},
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	var snap scheduling.Snapshot
	decode(t, w, &snap)
	require.Len(t, snap.Steps, 5)

	require.Eventually(t, func() bool {
		w := ts.do(t, http.MethodGet, "/api/schedule/runs/"+snap.ID, nil)
		var s scheduling.Snapshot
		decode(t, w, &s)
		return s.State == scheduling.RunCompleted
	}, 5*time.Second, 20*time.Millisecond)

	meetings, err := ts.store.ListMeetings(context.Background())
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "2025-01-07", meetings[0].Date)
	assert.Equal(t, "15:00", meetings[0].Time)

	// A completed step cannot be forced into error.
	w = ts.do(t, http.MethodPost, "/api/schedule/runs/"+snap.ID+"/error", gin.H{"index": 3})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodGet, "/api/schedule/runs", nil)
	var list []scheduling.Snapshot
	decode(t, w, &list)
	assert.Len(t, list, 1)
}

func waitForRun(t *testing.T, ts *testServer, id string, state scheduling.RunState) scheduling.Snapshot {
	t.Helper()
	var s scheduling.Snapshot
	require.Eventually(t, func() bool {
		w := ts.do(t, http.MethodGet, "/api/schedule/runs/"+id, nil)
		decode(t, w, &s)
		return s.State == state
	}, 5*time.Second, 20*time.Millisecond)
	return s
}

func TestScheduleRoutes_FormRunKeepsRequestedTime(t *testing.T) {
	tests := []struct {
		name         string
		participants []string
		busy         string
	}{
		{name: "outside every calendar", participants: []string{"面试官A", "候选人B"}, busy: "面试官A和候选人B"},
		{name: "no shared free day", participants: []string{"面试官A", "张三"}, busy: "面试官A和张三"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, staticCompleter("x"), 0)

			w := ts.do(t, http.MethodPost, "/api/schedule/runs", gin.H{
				"mode": "form",
				"form": gin.H{
					"title":        "评审会",
					"participants": tt.participants,
					"date":         "2026-11-03",
					"time":         "10:00",
					"duration":     60,
				},
			})
			require.Equal(t, http.StatusAccepted, w.Code)
			var snap scheduling.Snapshot
			decode(t, w, &snap)

			done := waitForRun(t, ts, snap.ID, scheduling.RunCompleted)
			assert.Equal(t, "建议时间段：11-03 周二 10:00-11:00（"+tt.busy+"在该时间段不空闲）", done.Steps[2].Details)

			meetings, err := ts.store.ListMeetings(context.Background())
			require.NoError(t, err)
			require.Len(t, meetings, 1)
			assert.Equal(t, "2026-11-03", meetings[0].Date)
			assert.Equal(t, "10:00", meetings[0].Time)
			assert.Equal(t, 60, meetings[0].Duration)
		})
	}
}

func TestScheduleRoutes_NaturalRunWithoutCommonSlotFails(t *testing.T) {
	ts := newTestServer(t, staticCompleter("x"), 0)

	w := ts.do(t, http.MethodPost, "/api/schedule/runs", gin.H{"mode": "natural", "message": "安排面试官A和张三开个会"})
	require.Equal(t, http.StatusAccepted, w.Code)
	var snap scheduling.Snapshot
	decode(t, w, &snap)

	failed := waitForRun(t, ts, snap.ID, scheduling.RunFailed)
	assert.Equal(t, scheduling.StepCompleted, failed.Steps[1].Status)
	assert.Equal(t, scheduling.StepError, failed.Steps[2].Status)
	assert.Equal(t, scheduling.StepPending, failed.Steps[3].Status)

	meetings, err := ts.store.ListMeetings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, meetings)
}

func TestScheduleRoutes_ErrorAndIntervention(t *testing.T) {
	ts := newTestServer(t, staticCompleter("x"), time.Hour)

	w := ts.do(t, http.MethodPost, "/api/schedule/runs", gin.H{"mode": "natural", "message": "安排面试官A和候选人B的面试"})
	require.Equal(t, http.StatusAccepted, w.Code)
	var snap scheduling.Snapshot
	decode(t, w, &snap)
	base := "/api/schedule/runs/" + snap.ID

	w = ts.do(t, http.MethodPost, base+"/intervention", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, base+"/contact-methods/reorder", gin.H{"from": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(t, http.MethodPost, base+"/contact-methods/reorder", gin.H{"from": 0, "to": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(t, http.MethodPost, base+"/contact-methods/reorder", gin.H{"from": 3, "to": 0})
	require.Equal(t, http.StatusOK, w.Code)
	var methods []scheduling.ContactMethod
	decode(t, w, &methods)
	assert.Equal(t, "phone", methods[0].ID)

	w = ts.do(t, http.MethodPost, base+"/error", gin.H{"index": 3})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &snap)
	assert.Equal(t, scheduling.StepError, snap.Steps[3].Status)

	w = ts.do(t, http.MethodPost, base+"/intervention", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var step scheduling.Step
	decode(t, w, &step)
	assert.Equal(t, "6", step.ID)
	assert.Equal(t, scheduling.StepCompleted, step.Status)

	w = ts.do(t, http.MethodGet, "/api/schedule/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/api/schedule/runs", gin.H{"mode": "form"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
