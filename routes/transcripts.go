package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"lms-video-platform/services"
	"lms-video-platform/utils"
)

// TranscriptDeps bundles the read-side transcript services.
type TranscriptDeps struct {
	Subtitles *services.SubtitleService
	Context   *services.ContextService
	Search    *services.SearchService
}

// SetupTranscriptRoutes registers subtitle, context, and search endpoints.
func SetupTranscriptRoutes(router *gin.Engine, deps TranscriptDeps) {
	videos := router.Group("/api/videos")
	{
		videos.GET("/:id/subtitles", HandleSubtitles(deps))
		videos.GET("/:id/context", HandleContext(deps))
		videos.GET("/:id/search", HandleSearch(deps))
	}
}

// HandleSubtitles serves the generated SRT document.
func HandleSubtitles(deps TranscriptDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		srt, err := deps.Subtitles.GetSubtitles(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				utils.RespondWithNotFound(c, "Video not found")
				return
			}
			utils.RespondWithNotFound(c, "Subtitles not available")
			return
		}
		c.Data(http.StatusOK, "application/x-subrip; charset=utf-8", []byte(srt))
	}
}

// HandleContext returns the transcript text around a timestamp.
func HandleContext(deps TranscriptDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		timestamp, err := strconv.ParseFloat(c.Query("timestamp"), 64)
		if err != nil || timestamp < 0 {
			utils.RespondWithBadRequest(c, "timestamp must be a non-negative number of seconds", nil)
			return
		}

		// window is optional; 0 falls back to the configured default
		var window float64
		if raw := c.Query("window"); raw != "" {
			window, err = strconv.ParseFloat(raw, 64)
			if err != nil || window <= 0 {
				utils.RespondWithBadRequest(c, "window must be a positive number of seconds", nil)
				return
			}
		}

		result, err := deps.Context.Extract(c.Request.Context(), c.Param("id"), timestamp, window)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to extract context", nil)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// HandleSearch ranks a video's transcript segments against a free-text query.
func HandleSearch(deps TranscriptDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			utils.RespondWithBadRequest(c, "q is required", nil)
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

		resp, err := deps.Search.Search(c.Request.Context(), c.Param("id"), query, limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Search failed", nil)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
