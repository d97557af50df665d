package ws

import (
	"context"
	"encoding/json"
	"strings"

	"meeting-assistant/internal/assistant"
	"meeting-assistant/internal/models"
	pkgmodels "meeting-assistant/pkg/models"

	"github.com/pkg/errors"
)

const replyFailed = "抱歉，处理您的请求时出现错误。"

// ConversationStore persists mock user conversation lines.
type ConversationStore interface {
	AppendConversation(ctx context.Context, msg *models.ConversationMessage) error
}

// Dispatcher routes chat_message frames to the user dialogue and
// mock_user_message frames to the coordination dialogue.
type Dispatcher struct {
	Assistant     *assistant.Assistant
	Conversations ConversationStore
}

func (d *Dispatcher) HandleEvent(ctx context.Context, hub *Hub, ev InboundEvent) error {
	switch ev.Type {
	case pkgmodels.EventChatMessage:
		var p pkgmodels.ChatMessagePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return errors.Wrap(err, "decode chat_message")
		}
		return d.chat(ctx, hub, p)
	case pkgmodels.EventMockUserMessage:
		var p pkgmodels.MockUserMessagePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return errors.Wrap(err, "decode mock_user_message")
		}
		return d.mockUser(ctx, hub, p)
	default:
		return errors.Errorf("unknown event %q", ev.Type)
	}
}

func (d *Dispatcher) chat(ctx context.Context, hub *Hub, p pkgmodels.ChatMessagePayload) error {
	if strings.TrimSpace(p.Message) == "" {
		return errors.New("chat_message without text")
	}
	dlg, err := d.Assistant.Dialogue(pkgmodels.DialogueUserInitiated)
	if err != nil {
		return err
	}

	reply, err := dlg.Reply(ctx, p.Message)
	if err != nil {
		hub.NotifyMessage(pkgmodels.ChannelMessage{Message: replyFailed, Type: pkgmodels.MessageSystem})
		return err
	}
	hub.NotifyMessage(pkgmodels.ChannelMessage{Message: reply, Type: pkgmodels.MessageAssistant})
	return nil
}

func (d *Dispatcher) mockUser(ctx context.Context, hub *Hub, p pkgmodels.MockUserMessagePayload) error {
	if p.UserID == "" || strings.TrimSpace(p.Message) == "" {
		return errors.New("mock_user_message needs user_id and message")
	}
	if err := d.record(ctx, p.UserID, pkgmodels.MessageUser, p.Message); err != nil {
		return err
	}
	hub.NotifyCoordination(pkgmodels.CoordinationMessage{TargetUserID: p.UserID, Message: p.Message, Type: pkgmodels.MessageUser})

	dlg, err := d.Assistant.Dialogue(pkgmodels.DialogueSystemInitiated)
	if err != nil {
		return err
	}
	reply, err := dlg.Reply(ctx, p.Message)
	if err != nil {
		hub.NotifyCoordination(pkgmodels.CoordinationMessage{TargetUserID: p.UserID, Message: replyFailed, Type: pkgmodels.MessageSystem})
		return err
	}
	if err := d.record(ctx, p.UserID, pkgmodels.MessageAssistant, reply); err != nil {
		return err
	}
	hub.NotifyCoordination(pkgmodels.CoordinationMessage{TargetUserID: p.UserID, Message: reply, Type: pkgmodels.MessageAssistant})
	return nil
}

func (d *Dispatcher) record(ctx context.Context, userID, role, content string) error {
	if d.Conversations == nil {
		return nil
	}
	return d.Conversations.AppendConversation(ctx, &models.ConversationMessage{UserID: userID, Role: role, Content: content})
}
