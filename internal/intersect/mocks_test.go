package intersect

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"

	"github.com/bradcj/intersect/internal/provider"
)

// MockProvider implements MusicProvider for handler tests. The identity
// accessors return fixed values so tests do not have to stub them.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) AuthCodeURL(state, redirectURI string) string {
	args := m.Called(state, redirectURI)
	return args.String(0)
}

func (m *MockProvider) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	args := m.Called(ctx, code, redirectURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func (m *MockProvider) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	args := m.Called(ctx, tok)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func (m *MockProvider) LikedSongs(ctx context.Context, tok *oauth2.Token) ([]provider.Song, error) {
	args := m.Called(ctx, tok)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.Song), args.Error(1)
}

func (m *MockProvider) CreatePlaylist(ctx context.Context, tok *oauth2.Token, title, description string) (string, error) {
	args := m.Called(ctx, tok, title, description)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) AddPlaylistItems(ctx context.Context, tok *oauth2.Token, playlistID string, videoIDs []string) (int, error) {
	args := m.Called(ctx, tok, playlistID, videoIDs)
	return args.Int(0), args.Error(1)
}

func (m *MockProvider) ClientID() string     { return "client-id" }
func (m *MockProvider) ClientSecret() string { return "client-secret" }
func (m *MockProvider) TokenURI() string     { return "https://oauth2.googleapis.com/token" }
func (m *MockProvider) Scopes() []string {
	return []string{"https://www.googleapis.com/auth/youtube"}
}

// MockStateStore implements StateStore.
type MockStateStore struct {
	mock.Mock
}

func (m *MockStateStore) Put(ctx context.Context, state string, data OAuthState, ttl time.Duration) error {
	args := m.Called(ctx, state, data, ttl)
	return args.Error(0)
}

func (m *MockStateStore) Consume(ctx context.Context, state string) (*OAuthState, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OAuthState), args.Error(1)
}

// staticVerifier accepts any token and maps it to a fixed user id.
type staticVerifier struct {
	userID string
}

func (v staticVerifier) Verify(string) (string, error) { return v.userID, nil }

// newTestServer wires a Server against mocks with a frozen clock and no
// Redis. The returned instant is what s.now() reports.
func newTestServer(store Store, states StateStore, prov MusicProvider) (*Server, time.Time) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	srv := NewServer(store, states, prov, staticVerifier{userID: "user1"}, nil, Config{})
	srv.now = func() time.Time { return fixed }
	return srv, fixed
}

// newRequestWithUser builds a request that already passed auth for userID.
func newRequestWithUser(method, url string, body io.Reader, userID string) *http.Request {
	req := httptest.NewRequest(method, url, body)
	return req.WithContext(withUserID(req.Context(), userID))
}
