package router

import (
	"github.com/cuongbtq/transcribe-service/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	transcriptionHandler := handler.NewTranscriptionHandler(deps)
	streamHandler := handler.NewStreamHandler(deps)

	// Health check endpoint
	r.GET("/health", transcriptionHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/transcriptions - Upload audio, schedule a job
		v1.POST("/transcriptions", transcriptionHandler.CreateTranscription)

		// GET /api/v1/transcriptions/:id - Poll job status
		v1.GET("/transcriptions/:id", transcriptionHandler.GetTranscription)

		// GET /api/v1/capacity - Current load vs configured limits
		v1.GET("/capacity", transcriptionHandler.GetCapacity)

		// GET /api/v1/stream - WebSocket streaming transcription
		v1.GET("/stream", streamHandler.Stream)
	}

	return r
}
