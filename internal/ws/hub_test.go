package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"meeting-assistant/internal/assistant"
	"meeting-assistant/internal/completion"
	"meeting-assistant/internal/models"
	"meeting-assistant/internal/scheduling"
	pkgmodels "meeting-assistant/pkg/models"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type memConversations struct {
	mu   sync.Mutex
	msgs []models.ConversationMessage
}

func (m *memConversations) AppendConversation(_ context.Context, msg *models.ConversationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, *msg)
	return nil
}

func (m *memConversations) all() []models.ConversationMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ConversationMessage(nil), m.msgs...)
}

type harness struct {
	hub    *Hub
	conn   *websocket.Conn
	cancel context.CancelFunc
	srv    *httptest.Server
	done   chan struct{}
}

func startHub(t *testing.T, handler Handler) *harness {
	t.Helper()
	hub := NewHub(handler, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	return &harness{hub: hub, conn: conn, cancel: cancel, srv: srv, done: done}
}

func (h *harness) stop() {
	h.cancel()
	<-h.done
	h.conn.Close()
	h.srv.Close()
}

func (h *harness) read(t *testing.T) pkgmodels.Envelope {
	t.Helper()
	h.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := h.conn.ReadMessage()
	require.NoError(t, err)
	var env pkgmodels.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func (h *harness) write(t *testing.T, eventType string, data interface{}) {
	t.Helper()
	require.NoError(t, h.conn.WriteJSON(pkgmodels.Envelope{Type: eventType, Data: data}))
}

func TestHub_BroadcastProgress(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := startHub(t, nil)
	defer h.stop()

	h.hub.ProgressListener().OnEvent(scheduling.Event{RunID: "r1", StepIndex: 2, MethodIndex: -1, Progress: 60})

	env := h.read(t)
	assert.Equal(t, pkgmodels.EventProgressUpdate, env.Type)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "r1", data["run_id"])
	assert.EqualValues(t, 60, data["progress"])
}

func TestHub_ChatMessage(t *testing.T) {
	defer goleak.VerifyNone(t)
	a := assistant.New(completion.CompleterFunc(func(context.Context, string) (string, error) {
		return "好的，请问会议主题是什么呢？", nil
	}))
	h := startHub(t, &Dispatcher{Assistant: a})
	defer h.stop()

	h.write(t, pkgmodels.EventChatMessage, pkgmodels.ChatMessagePayload{Message: "帮我约张三"})

	env := h.read(t)
	assert.Equal(t, pkgmodels.EventMessage, env.Type)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "好的，请问会议主题是什么呢？", data["message"])
	assert.Equal(t, pkgmodels.MessageAssistant, data["type"])
	assert.NotEmpty(t, data["timestamp"])
}

func TestHub_ChatMessageUpstreamFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	a := assistant.New(completion.CompleterFunc(func(context.Context, string) (string, error) {
		return "", errors.New("upstream down")
	}))
	h := startHub(t, &Dispatcher{Assistant: a})
	defer h.stop()

	h.write(t, pkgmodels.EventChatMessage, pkgmodels.ChatMessagePayload{Message: "hello"})

	env := h.read(t)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, pkgmodels.MessageSystem, data["type"])
	assert.Equal(t, replyFailed, data["message"])
}

func TestHub_MockUserMessage(t *testing.T) {
	defer goleak.VerifyNone(t)
	conv := &memConversations{}
	a := assistant.New(completion.CompleterFunc(func(context.Context, string) (string, error) {
		return "周二下午两点可以吗？", nil
	}))
	h := startHub(t, &Dispatcher{Assistant: a, Conversations: conv})
	defer h.stop()

	h.write(t, pkgmodels.EventMockUserMessage, pkgmodels.MockUserMessagePayload{UserID: "2", Message: "我周二下午有空"})

	first := h.read(t)
	assert.Equal(t, pkgmodels.EventCoordinationMessage, first.Type)
	assert.Equal(t, "我周二下午有空", first.Data.(map[string]interface{})["message"])

	second := h.read(t)
	data := second.Data.(map[string]interface{})
	assert.Equal(t, "2", data["target_user_id"])
	assert.Equal(t, pkgmodels.MessageAssistant, data["type"])

	msgs := conv.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, pkgmodels.MessageUser, msgs[0].Role)
	assert.Equal(t, "周二下午两点可以吗？", msgs[1].Content)
}

func TestHub_StopClosesClients(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := startHub(t, nil)

	h.cancel()
	<-h.done
	h.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := h.conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, h.hub.ClientCount())

	// Broadcasting after the hub stopped must not block.
	h.hub.BroadcastEvent(pkgmodels.EventMessage, "late")
	h.conn.Close()
	h.srv.Close()
}
