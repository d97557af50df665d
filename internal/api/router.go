package api

import (
	"meeting-assistant/internal/assistant"
	"meeting-assistant/internal/completion"
	"meeting-assistant/internal/scheduling"
	"meeting-assistant/internal/store"
	"meeting-assistant/internal/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Store     *store.Store
	Completer completion.Completer
	Assistant *assistant.Assistant
	Manager   *scheduling.Manager
	Hub       *ws.Hub
	Logger    *zap.Logger
}

// CORS allows the browser front end on any origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(d Deps) *gin.Engine {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), CORS())

	meetingHandler := NewMeetingHandler(d.Store, log)
	mockHandler := NewMockHandler(d.Store, log)
	chatHandler := NewChatHandler(d.Completer, d.Assistant, log)
	scheduleHandler := NewScheduleHandler(d.Manager, log)

	if d.Hub != nil {
		r.GET("/ws", func(c *gin.Context) { d.Hub.ServeWs(c.Writer, c.Request) })
	}

	// Meetings
	r.GET("/meetings", meetingHandler.ListMeetings)
	r.POST("/meetings", meetingHandler.CreateMeeting)
	r.GET("/meetings/:id", meetingHandler.GetMeeting)
	r.PUT("/meetings/:id", meetingHandler.UpdateMeeting)
	r.DELETE("/meetings/:id", meetingHandler.DeleteMeeting)

	// Dialogue
	r.POST("/chat", chatHandler.Chat)
	r.POST("/end_dialogue", chatHandler.EndDialogue)

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/chat", chatHandler.Proxy)

		mockGroup := apiGroup.Group("/mock")
		{
			mockGroup.GET("/users", mockHandler.GetUsers)
			mockGroup.GET("/users/:id/schedule", mockHandler.GetUserSchedule)
			mockGroup.GET("/conversation/:id", mockHandler.GetConversation)
		}

		runGroup := apiGroup.Group("/schedule/runs")
		{
			runGroup.POST("", scheduleHandler.StartRun)
			runGroup.GET("", scheduleHandler.ListRuns)
			runGroup.GET("/:id", scheduleHandler.GetRun)
			runGroup.POST("/:id/error", scheduleHandler.SimulateError)
			runGroup.POST("/:id/intervention", scheduleHandler.CompleteIntervention)
			runGroup.POST("/:id/contact-methods/reorder", scheduleHandler.ReorderContactMethods)
		}
	}

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()))
	}
}
