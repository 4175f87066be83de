package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"tubegate/internal/metrics"
	"tubegate/internal/models"
	"tubegate/internal/repository"
	"tubegate/internal/security"
)

type VideoService struct {
	videos         VideoStore
	watches        WatchRecorder
	tokens         *security.TokenService
	dashboardLimit int
	sink           string
	log            zerolog.Logger
	now            func() time.Time
}

type VideoServiceConfig struct {
	DashboardLimit int
	// Sink labels watch metrics; it does not change behaviour.
	Sink string
}

func NewVideoService(
	videos VideoStore,
	watches WatchRecorder,
	tokens *security.TokenService,
	cfg VideoServiceConfig,
	log zerolog.Logger,
) *VideoService {
	return &VideoService{
		videos:         videos,
		watches:        watches,
		tokens:         tokens,
		dashboardLimit: cfg.DashboardLimit,
		sink:           cfg.Sink,
		log:            log,
		now:            time.Now,
	}
}

type DashboardEntry struct {
	Video         models.Video
	PlaybackToken string
}

// Dashboard returns the most recent active videos, each paired with a fresh
// playback token bound to that video.
func (s *VideoService) Dashboard(ctx context.Context, user models.User) ([]DashboardEntry, error) {
	videos, err := s.videos.ActiveRecent(ctx, s.dashboardLimit)
	if err != nil {
		return nil, err
	}

	entries := make([]DashboardEntry, 0, len(videos))
	for _, video := range videos {
		token, err := s.tokens.GeneratePlaybackToken(video.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, DashboardEntry{Video: video, PlaybackToken: token})
	}
	metrics.PlaybackTokensIssued.Add(float64(len(entries)))

	s.log.Info().Str("user_id", user.ID).Int("count", len(entries)).Msg("dashboard served")
	return entries, nil
}

type StreamResult struct {
	StreamURL string
	VideoID   string
	Title     string
	ExpiresAt time.Time
}

// Stream redeems a playback token for the embed URL. Unknown and inactive
// videos fail the same way.
func (s *VideoService) Stream(ctx context.Context, user models.User, videoID, playbackToken string) (StreamResult, error) {
	if playbackToken == "" {
		metrics.StreamRedemptionsTotal.WithLabelValues("missing_token").Inc()
		return StreamResult{}, ErrMissingPlaybackToken
	}

	claims, err := s.tokens.ParsePlaybackToken(playbackToken, videoID)
	if err != nil {
		metrics.StreamRedemptionsTotal.WithLabelValues("invalid_token").Inc()
		return StreamResult{}, ErrInvalidPlaybackToken
	}

	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repository.ErrVideoNotFound) {
			metrics.StreamRedemptionsTotal.WithLabelValues("not_found").Inc()
			return StreamResult{}, ErrVideoNotFound
		}
		return StreamResult{}, err
	}
	if !video.IsActive {
		metrics.StreamRedemptionsTotal.WithLabelValues("not_found").Inc()
		return StreamResult{}, ErrVideoNotFound
	}

	metrics.StreamRedemptionsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", user.ID).Str("video_id", video.ID).Msg("stream accessed")
	return StreamResult{
		StreamURL: security.EmbedURL(video.ProviderID),
		VideoID:   video.ID,
		Title:     video.Title,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

type TrackInput struct {
	Duration  int
	Completed bool
}

func (s *VideoService) Track(ctx context.Context, user models.User, videoID string, input TrackInput) error {
	if _, err := s.videos.GetByID(ctx, videoID); err != nil {
		if errors.Is(err, repository.ErrVideoNotFound) {
			return ErrVideoNotFound
		}
		return err
	}

	if input.Duration < 0 {
		input.Duration = 0
	}
	event := models.WatchEvent{
		UserID:    user.ID,
		VideoID:   videoID,
		Duration:  input.Duration,
		Completed: input.Completed,
		WatchedAt: s.now().UTC(),
	}
	if err := s.watches.Record(ctx, event); err != nil {
		return err
	}

	metrics.WatchEventsTotal.WithLabelValues(s.sink).Inc()
	s.log.Info().
		Str("user_id", user.ID).
		Str("video_id", videoID).
		Int("duration", input.Duration).
		Bool("completed", input.Completed).
		Msg("watch tracked")
	return nil
}
