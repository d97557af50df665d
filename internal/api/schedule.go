package api

import (
	"net/http"

	"meeting-assistant/internal/scheduling"
	pkgmodels "meeting-assistant/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type ScheduleHandler struct {
	manager *scheduling.Manager
	log     *zap.Logger
}

func NewScheduleHandler(m *scheduling.Manager, log *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{manager: m, log: log}
}

func (h *ScheduleHandler) StartRun(c *gin.Context) {
	var req scheduling.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.manager.Start(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	snap, err := h.manager.Snapshot(run.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, snap)
}

func (h *ScheduleHandler) ListRuns(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.List())
}

func (h *ScheduleHandler) GetRun(c *gin.Context) {
	snap, err := h.manager.Snapshot(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *ScheduleHandler) SimulateError(c *gin.Context) {
	var req pkgmodels.SimulateErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.SimulateError(c.Param("id"), *req.Index); err != nil {
		h.fail(c, err)
		return
	}
	h.GetRun(c)
}

func (h *ScheduleHandler) CompleteIntervention(c *gin.Context) {
	step, err := h.manager.CompleteIntervention(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

func (h *ScheduleHandler) ReorderContactMethods(c *gin.Context) {
	var req pkgmodels.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	methods, err := h.manager.ReorderContactMethods(c.Param("id"), *req.From, *req.To)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, methods)
}

// fail maps scheduling errors onto status codes.
func (h *ScheduleHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, scheduling.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, scheduling.ErrInvalidRequest),
		errors.Is(err, scheduling.ErrStepOutOfRange),
		errors.Is(err, scheduling.ErrMethodOutOfRange),
		errors.Is(err, scheduling.ErrNoContactMethods):
		status = http.StatusBadRequest
	case errors.Is(err, scheduling.ErrInvalidTransition),
		errors.Is(err, scheduling.ErrNoErroredStep),
		errors.Is(err, scheduling.ErrReorderLocked),
		errors.Is(err, scheduling.ErrStepErrored):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.log.Error("Scheduling request failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
