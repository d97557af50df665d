package api

import (
	"net/http"
	"strings"

	"meeting-assistant/internal/models"
	"meeting-assistant/internal/store"
	pkgmodels "meeting-assistant/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type MeetingHandler struct {
	store *store.Store
	log   *zap.Logger
}

func NewMeetingHandler(s *store.Store, log *zap.Logger) *MeetingHandler {
	return &MeetingHandler{store: s, log: log}
}

func (h *MeetingHandler) ListMeetings(c *gin.Context) {
	meetings, err := h.store.ListMeetings(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list meetings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch meetings"})
		return
	}
	c.JSON(http.StatusOK, meetings)
}

func (h *MeetingHandler) GetMeeting(c *gin.Context) {
	m, err := h.store.GetMeeting(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MeetingHandler) CreateMeeting(c *gin.Context) {
	var req pkgmodels.MeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Title) == "" || len(req.Participants) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and participants are required"})
		return
	}

	m := &models.Meeting{}
	applyMeeting(m, req)
	if err := h.store.CreateMeeting(c.Request.Context(), m); err != nil {
		h.log.Error("Failed to create meeting", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create meeting"})
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *MeetingHandler) UpdateMeeting(c *gin.Context) {
	var req pkgmodels.MeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != "" && req.Status != models.MeetingUpcoming && req.Status != models.MeetingPast {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be upcoming or past"})
		return
	}

	m, err := h.store.GetMeeting(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	applyMeeting(m, req)
	if err := h.store.UpdateMeeting(c.Request.Context(), m); err != nil {
		h.log.Error("Failed to update meeting", zap.String("id", m.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update meeting"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MeetingHandler) DeleteMeeting(c *gin.Context) {
	if err := h.store.DeleteMeeting(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Meeting deleted"})
}

func (h *MeetingHandler) storeError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Meeting not found"})
		return
	}
	h.log.Error("Meeting store error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// applyMeeting copies the non-empty request fields onto m.
func applyMeeting(m *models.Meeting, req pkgmodels.MeetingRequest) {
	if req.Title != "" {
		m.Title = strings.TrimSpace(req.Title)
	}
	if req.Participants != nil {
		m.Participants = req.Participants
	}
	if req.Date != "" {
		m.Date = req.Date
	}
	if req.Time != "" {
		m.Time = req.Time
	}
	if req.Duration > 0 {
		m.Duration = req.Duration
	}
	if req.Location != "" {
		m.Location = req.Location
	}
	if req.Description != "" {
		m.Description = req.Description
	}
	if req.Status != "" {
		m.Status = req.Status
	}
}
