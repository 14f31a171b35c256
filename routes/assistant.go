package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lms-video-platform/internal/ai"
	"lms-video-platform/services"
	"lms-video-platform/utils"
)

// AssistantDeps bundles what the Q&A endpoint needs: transcript retrieval
// plus the generative client.
type AssistantDeps struct {
	Context   *services.ContextService
	Search    *services.SearchService
	Assistant *ai.AssistantClient
}

type askRequest struct {
	Question  string  `json:"question" binding:"required"`
	Timestamp float64 `json:"timestamp"`
}

// SetupAssistantRoutes registers the lecture Q&A endpoint.
func SetupAssistantRoutes(router *gin.Engine, deps AssistantDeps) {
	router.POST("/api/videos/:id/assistant", HandleAsk(deps))
}

// HandleAsk answers a question about a lecture, grounding the model on
// semantically relevant segments plus the transcript around the student's
// playback position when one is given.
func HandleAsk(deps AssistantDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req askRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "question is required", nil)
			return
		}
		videoID := c.Param("id")

		var transcriptContext []string

		results, err := deps.Search.Search(c.Request.Context(), videoID, req.Question, 0)
		if err == nil {
			for _, r := range results.Results {
				transcriptContext = append(transcriptContext, r.Text)
			}
		}

		if req.Timestamp > 0 {
			window, err := deps.Context.Extract(c.Request.Context(), videoID, req.Timestamp, 0)
			if err == nil && window.Found {
				transcriptContext = append(transcriptContext, window.Text)
			}
		}

		answer, err := deps.Assistant.Answer(c.Request.Context(), req.Question, transcriptContext)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to generate answer", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"video_id": videoID,
			"question": req.Question,
			"answer":   answer,
		})
	}
}
