package api

import (
	"net/http"

	"meeting-assistant/internal/models"
	"meeting-assistant/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MockHandler serves the simulated participants.
type MockHandler struct {
	store *store.Store
	log   *zap.Logger
}

func NewMockHandler(s *store.Store, log *zap.Logger) *MockHandler {
	return &MockHandler{store: s, log: log}
}

func (h *MockHandler) GetUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *MockHandler) GetUserSchedule(c *gin.Context) {
	user, err := h.store.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	slots := user.Availability
	if slots == nil {
		slots = []models.Availability{}
	}
	c.JSON(http.StatusOK, slots)
}

func (h *MockHandler) GetConversation(c *gin.Context) {
	msgs, err := h.store.Conversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *MockHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	h.log.Error("Mock user lookup failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
