package routes

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"lms-video-platform/internal/config"
	"lms-video-platform/internal/logger"
	"lms-video-platform/internal/queue"
	"lms-video-platform/internal/storage"
	"lms-video-platform/models"
	"lms-video-platform/services"
	"lms-video-platform/utils"
)

// VideoDeps bundles the dependencies the video endpoints need.
type VideoDeps struct {
	Cfg       *config.Config
	Videos    services.VideoStore
	Objects   storage.ObjectStorage
	Queue     *asynq.Client
	Subtitles *services.SubtitleService
}

// SetupVideoRoutes registers upload and status endpoints.
func SetupVideoRoutes(router *gin.Engine, deps VideoDeps) {
	videos := router.Group("/api/videos")
	{
		videos.POST("", HandleVideoUpload(deps))
		videos.GET("", HandleVideoList(deps))
		videos.GET("/:id", HandleVideoGet(deps))
		videos.POST("/:id/transcript/regenerate", HandleTranscriptRegenerate(deps))
	}
}

// HandleVideoUpload accepts a lecture video, stores it, and enqueues
// transcript generation. Responds 202 because processing is asynchronous.
func HandleVideoUpload(deps VideoDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		courseID := c.PostForm("course_id")
		title := c.PostForm("title")
		if courseID == "" {
			utils.RespondWithBadRequest(c, "course_id is required", nil)
			return
		}

		file, err := c.FormFile("video")
		if err != nil {
			utils.RespondWithBadRequest(c, "No video file uploaded", nil)
			return
		}
		if file.Size > deps.Cfg.MaxFileSize {
			utils.RespondWithTooLarge(c, fmt.Sprintf("Video exceeds maximum size of %d bytes", deps.Cfg.MaxFileSize))
			return
		}
		contentType := file.Header.Get("Content-Type")
		if !typeAllowed(contentType, deps.Cfg.AllowedTypes) {
			utils.RespondWithBadRequest(c, "Unsupported media type", gin.H{"content_type": contentType})
			return
		}
		if title == "" {
			title = file.Filename
		}

		src, err := file.Open()
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read uploaded file", nil)
			return
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read uploaded file", nil)
			return
		}

		videoID := uuid.New().String()
		storageKey := fmt.Sprintf("videos/%s%s", videoID, filepath.Ext(file.Filename))

		putCtx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()
		if _, err := deps.Objects.Put(putCtx, storageKey, data, contentType); err != nil {
			logger.Error("failed to store uploaded video", "video_id", videoID, "error", err)
			utils.RespondWithInternalError(c, "Failed to store video", nil)
			return
		}

		now := time.Now()
		video := &models.Video{
			ID:           videoID,
			CourseID:     courseID,
			Title:        title,
			OriginalName: file.Filename,
			StorageKey:   storageKey,
			Size:         file.Size,
			Status:       models.StatusPending,
			UploadedAt:   now,
			UpdatedAt:    now,
		}
		if err := deps.Videos.Insert(c.Request.Context(), video); err != nil {
			logger.Error("failed to insert video record", "video_id", videoID, "error", err)
			utils.RespondWithInternalError(c, "Failed to create video record", nil)
			return
		}

		if err := enqueueTranscript(c, deps.Queue, videoID); err != nil {
			logger.Error("failed to enqueue transcript task", "video_id", videoID, "error", err)
			deps.Videos.UpdateStatus(c.Request.Context(), videoID, models.StatusFailed, "failed to enqueue processing")
			utils.RespondWithInternalError(c, "Failed to schedule processing", nil)
			return
		}

		logger.Info("video uploaded", "video_id", videoID, "course_id", courseID, "size", file.Size)
		c.JSON(http.StatusAccepted, video)
	}
}

// HandleVideoList returns a page of video records, newest first.
func HandleVideoList(deps VideoDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 20
		}

		videos, total, err := deps.Videos.List(c.Request.Context(), page, limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list videos", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"videos": videos,
			"total":  total,
			"page":   page,
			"limit":  limit,
		})
	}
}

// HandleVideoGet returns a single video record including processing status.
func HandleVideoGet(deps VideoDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		video, err := deps.Videos.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				utils.RespondWithNotFound(c, "Video not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to load video", nil)
			return
		}
		c.JSON(http.StatusOK, video)
	}
}

// HandleTranscriptRegenerate re-runs the pipeline for an existing video.
// Regeneration replaces the previous segments and subtitle document.
func HandleTranscriptRegenerate(deps VideoDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		videoID := c.Param("id")

		video, err := deps.Videos.Get(c.Request.Context(), videoID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				utils.RespondWithNotFound(c, "Video not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to load video", nil)
			return
		}
		if video.Status == models.StatusProcessing {
			utils.RespondWithConflict(c, "Video is already being processed")
			return
		}

		if err := deps.Videos.UpdateStatus(c.Request.Context(), videoID, models.StatusPending, ""); err != nil {
			utils.RespondWithInternalError(c, "Failed to update video status", nil)
			return
		}
		deps.Subtitles.Invalidate(c.Request.Context(), videoID)

		if err := enqueueTranscript(c, deps.Queue, videoID); err != nil {
			logger.Error("failed to enqueue transcript task", "video_id", videoID, "error", err)
			utils.RespondWithInternalError(c, "Failed to schedule processing", nil)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"video_id": videoID,
			"status":   models.StatusPending,
		})
	}
}

func typeAllowed(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.EqualFold(strings.TrimSpace(t), contentType) {
			return true
		}
	}
	return false
}

func enqueueTranscript(c *gin.Context, client *asynq.Client, videoID string) error {
	task, err := queue.NewTranscriptTask(videoID)
	if err != nil {
		return err
	}
	_, err = client.EnqueueContext(c.Request.Context(), task)
	return err
}
