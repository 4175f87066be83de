package security

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for every verification failure. Callers never
// learn which check failed.
var ErrInvalidToken = errors.New("invalid or expired token")

type TokenKind string

const (
	KindAccess   TokenKind = "access"
	KindRefresh  TokenKind = "refresh"
	KindPlayback TokenKind = "playback"
)

// SessionClaims carry the user id in sub. Access and refresh tokens share
// this shape and the session secret; kind keeps them apart.
type SessionClaims struct {
	Kind TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// PlaybackClaims bind a capability to exactly one video.
type PlaybackClaims struct {
	VideoID string    `json:"vid"`
	Kind    TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	SessionSecret  string
	PlaybackSecret string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	PlaybackTTL    time.Duration
}

type TokenService struct {
	sessionSecret  []byte
	playbackSecret []byte
	accessTTL      time.Duration
	refreshTTL     time.Duration
	playbackTTL    time.Duration
	now            func() time.Time
}

type TokenOption func(*TokenService)

// WithClock overrides the time source used for both minting and verification.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

func NewTokenService(cfg TokenConfig, opts ...TokenOption) *TokenService {
	s := &TokenService{
		sessionSecret:  []byte(cfg.SessionSecret),
		playbackSecret: []byte(cfg.PlaybackSecret),
		accessTTL:      cfg.AccessTTL,
		refreshTTL:     cfg.RefreshTTL,
		playbackTTL:    cfg.PlaybackTTL,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *TokenService) GenerateAccessToken(userID string) (string, error) {
	return s.generateSessionToken(userID, KindAccess, s.accessTTL)
}

func (s *TokenService) GenerateRefreshToken(userID string) (string, error) {
	return s.generateSessionToken(userID, KindRefresh, s.refreshTTL)
}

func (s *TokenService) GeneratePlaybackToken(videoID string) (string, error) {
	now := s.now()
	claims := PlaybackClaims{
		VideoID: videoID,
		Kind:    KindPlayback,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.playbackTTL)),
		},
	}
	return sign(claims, s.playbackSecret)
}

func (s *TokenService) ParseAccessToken(tokenStr string) (*SessionClaims, error) {
	return s.parseSessionToken(tokenStr, KindAccess)
}

func (s *TokenService) ParseRefreshToken(tokenStr string) (*SessionClaims, error) {
	return s.parseSessionToken(tokenStr, KindRefresh)
}

// ParsePlaybackToken verifies the capability and that it was minted for videoID.
func (s *TokenService) ParsePlaybackToken(tokenStr string, videoID string) (*PlaybackClaims, error) {
	claims := &PlaybackClaims{}
	if err := s.parse(tokenStr, claims, s.playbackSecret); err != nil {
		return nil, err
	}
	if claims.Kind != KindPlayback || claims.VideoID == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	if claims.VideoID != videoID {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) generateSessionToken(userID string, kind TokenKind, ttl time.Duration) (string, error) {
	now := s.now()
	claims := SessionClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return sign(claims, s.sessionSecret)
}

func (s *TokenService) parseSessionToken(tokenStr string, kind TokenKind) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := s.parse(tokenStr, claims, s.sessionSecret); err != nil {
		return nil, err
	}
	if claims.Kind != kind || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

func sign(claims jwt.Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

const embedBase = "https://www.youtube.com/embed/"

// EmbedURL turns a private provider id into the player URL handed to clients
// in exchange for a valid playback token. It never produces a watch URL.
func EmbedURL(providerID string) string {
	params := "autoplay=1&playsinline=1&rel=0&modestbranding=1&enablejsapi=1"
	return embedBase + url.PathEscape(providerID) + "?" + params
}
