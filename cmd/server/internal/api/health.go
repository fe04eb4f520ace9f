package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/livemeet/livemeet/cmd/server/internal/transcribe"
)

// HandleHealth reports process liveness and transcription capability health.
// The process is healthy even when the capability is degraded; chunks are
// still accepted and dropped or mock-transcribed per the pipeline policy.
// GET /healthz
func HandleHealth(tr transcribe.Transcriber) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		healthy, err := tr.HealthCheck(ctx)
		status := "ok"
		if !healthy {
			status = "degraded"
		}

		body := gin.H{
			"status": status,
			"transcriber": gin.H{
				"name":    tr.Name(),
				"healthy": healthy,
			},
		}
		if err != nil {
			body["transcriber"].(gin.H)["error"] = err.Error()
		}
		c.JSON(http.StatusOK, body)
	}
}
