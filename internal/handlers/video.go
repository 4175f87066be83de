package handlers

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tubegate/internal/middleware"
	"tubegate/internal/service"
)

// videoResponse has no provider id field.
type videoResponse struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	ThumbnailURL  string `json:"thumbnail_url"`
	CreatedAt     string `json:"created_at"`
	PlaybackToken string `json:"playback_token"`
}

type dashboardResponse struct {
	Videos []videoResponse `json:"videos"`
	Count  int             `json:"count"`
}

type streamResponse struct {
	StreamURL string `json:"stream_url"`
	VideoID   string `json:"video_id"`
	Title     string `json:"title"`
	ExpiresAt int64  `json:"expires_at"`
}

type trackRequest struct {
	Duration  float64 `json:"duration"`
	Completed bool    `json:"completed"`
}

func (h HandlerSet) Dashboard(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	entries, err := h.videoService.Dashboard(c.Request.Context(), user)
	if err != nil {
		h.fail(c, err)
		return
	}

	videos := make([]videoResponse, 0, len(entries))
	for _, entry := range entries {
		videos = append(videos, videoResponse{
			ID:            entry.Video.ID,
			Title:         entry.Video.Title,
			Description:   entry.Video.Description,
			ThumbnailURL:  entry.Video.ThumbnailURL,
			CreatedAt:     entry.Video.CreatedAt.UTC().Format(time.RFC3339),
			PlaybackToken: entry.PlaybackToken,
		})
	}

	c.JSON(http.StatusOK, dashboardResponse{
		Videos: videos,
		Count:  len(videos),
	})
}

func (h HandlerSet) Stream(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	result, err := h.videoService.Stream(c.Request.Context(), user, c.Param("id"), c.Query("token"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, streamResponse{
		StreamURL: result.StreamURL,
		VideoID:   result.VideoID,
		Title:     result.Title,
		ExpiresAt: result.ExpiresAt.Unix(),
	})
}

func (h HandlerSet) Track(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	videoID := c.Param("id")

	// The body is optional and unknown or malformed fields are ignored.
	var req trackRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.log.Debug().Err(err).Str("video_id", videoID).Msg("ignoring unreadable track body")
			req = trackRequest{}
		}
	}

	input := service.TrackInput{
		Duration:  clampDuration(req.Duration),
		Completed: req.Completed,
	}
	if err := h.videoService.Track(c.Request.Context(), user, videoID, input); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Watch event recorded",
		"video_id": videoID,
	})
}

func clampDuration(seconds float64) int {
	switch {
	case seconds <= 0 || math.IsNaN(seconds):
		return 0
	case seconds >= math.MaxInt32:
		return math.MaxInt32
	default:
		return int(seconds)
	}
}
