// Package intersect implements the Intersect backend: YouTube account
// linking, liked-songs caching, groups, and generation of playlists from
// the intersection of all group members' liked songs.
package intersect

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/bradcj/intersect/internal/provider"
)

// MusicProvider is the external music-service surface the handlers need:
// the OAuth consent/exchange/refresh flow plus the liked-songs and playlist
// calls. *provider.Client implements it.
type MusicProvider interface {
	AuthCodeURL(state, redirectURI string) string
	Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)
	Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error)
	LikedSongs(ctx context.Context, tok *oauth2.Token) ([]provider.Song, error)
	CreatePlaylist(ctx context.Context, tok *oauth2.Token, title, description string) (string, error)
	AddPlaylistItems(ctx context.Context, tok *oauth2.Token, playlistID string, videoIDs []string) (int, error)
	ClientID() string
	ClientSecret() string
	TokenURI() string
	Scopes() []string
}

// Config carries the tunables; zero values fall back to defaults.
type Config struct {
	PreviewTTL         time.Duration
	GenerationCooldown time.Duration
}

type Server struct {
	store    Store
	states   StateStore
	provider MusicProvider
	verifier TokenVerifier
	rdb      *redis.Client

	previewTTL time.Duration
	cooldown   time.Duration
	now        func() time.Time
}

func NewServer(store Store, states StateStore, prov MusicProvider, verifier TokenVerifier, rdb *redis.Client, cfg Config) *Server {
	if cfg.PreviewTTL <= 0 {
		cfg.PreviewTTL = defaultPreviewTTL
	}
	if cfg.GenerationCooldown <= 0 {
		cfg.GenerationCooldown = defaultGenerationCooldown
	}
	return &Server{
		store:      store,
		states:     states,
		provider:   prov,
		verifier:   verifier,
		rdb:        rdb,
		previewTTL: cfg.PreviewTTL,
		cooldown:   cfg.GenerationCooldown,
		now:        time.Now,
	}
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)

	// Popup redirect target; the provider calls it without our bearer token.
	r.Get("/oauth/callback", s.handleOAuthCallback)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/oauth/start", s.handleOAuthStart)
		r.Get("/me", s.handleMe)

		r.Post("/songs/sync", s.handleSyncSongs)
		r.Get("/songs/liked", s.handleLikedSongs)

		r.Post("/groups", s.handleCreateGroup)
		r.Get("/groups", s.handleListGroups)
		r.Get("/groups/{groupID}", s.handleGetGroup)
		r.Post("/groups/{groupID}/join", s.handleJoinGroup)

		r.Post("/groups/{groupID}/preview", s.handlePreview)
		r.Post("/groups/{groupID}/playlist", s.handleCommitPlaylist)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "intersect-backend",
	})
}
