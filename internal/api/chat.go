package api

import (
	"net/http"

	"meeting-assistant/internal/assistant"
	"meeting-assistant/internal/completion"
	pkgmodels "meeting-assistant/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	chatProxyError = "Error calling OpenAI API"
	summaryError   = "总结对话时出现错误。"
)

// ChatHandler proxies raw prompts to the completion backend and drives the
// assistant dialogues.
type ChatHandler struct {
	completer completion.Completer
	assistant *assistant.Assistant
	log       *zap.Logger
}

func NewChatHandler(c completion.Completer, a *assistant.Assistant, log *zap.Logger) *ChatHandler {
	return &ChatHandler{completer: c, assistant: a, log: log}
}

// Proxy handles POST /api/chat.
func (h *ChatHandler) Proxy(c *gin.Context) {
	var req pkgmodels.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	text, err := h.completer.Complete(c.Request.Context(), req.Message)
	if err != nil {
		h.log.Error("Completion request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": chatProxyError})
		return
	}
	c.JSON(http.StatusOK, pkgmodels.ChatResponse{Response: text})
}

// Chat handles POST /chat, one turn of the user or coordination dialogue.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req pkgmodels.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dlg, err := h.assistant.Dialogue(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := dlg.Reply(c.Request.Context(), req.Message)
	if err != nil {
		h.log.Error("Dialogue reply failed", zap.String("type", req.Type), zap.Error(err))
		c.JSON(http.StatusInternalServerError, pkgmodels.ChatResponse{
			Response: "抱歉，处理您的请求时出现错误: " + errors.Cause(err).Error(),
			Status:   pkgmodels.ChatError,
		})
		return
	}
	status := pkgmodels.ChatContinue
	if dlg.Complete() {
		status = pkgmodels.ChatComplete
	}
	c.JSON(http.StatusOK, pkgmodels.ChatResponse{Response: reply, Status: status})
}

// EndDialogue handles POST /end_dialogue. A summarized dialogue starts over.
func (h *ChatHandler) EndDialogue(c *gin.Context) {
	var req pkgmodels.EndDialogueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dlg, err := h.assistant.Dialogue(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := dlg.Summarize(c.Request.Context())
	if err != nil {
		h.log.Error("结束对话失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, pkgmodels.EndDialogueResponse{Response: summaryError, Status: "error"})
		return
	}
	dlg.Reset()
	c.JSON(http.StatusOK, pkgmodels.EndDialogueResponse{Summary: summary, Status: "success"})
}
