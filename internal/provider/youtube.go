// Package provider implements the YouTube music-provider client: the OAuth
// authorization flow and the Data API calls the backend needs (liked songs,
// playlist creation, item insertion).
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultAPIBase = "https://www.googleapis.com/youtube/v3"

	scopeYouTubeReadonly = "https://www.googleapis.com/auth/youtube.readonly"
	scopeYouTube         = "https://www.googleapis.com/auth/youtube"
)

// Song is one liked item as the client app consumes it.
type Song struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
	Channel string `json:"channel"`
}

type Client struct {
	oauth   *oauth2.Config
	apiBase string
	http    *http.Client
}

func NewClient(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{scopeYouTubeReadonly, scopeYouTube},
			Endpoint:     google.Endpoint,
		},
		apiBase: defaultAPIBase,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ClientID exposes the configured OAuth client id for credential records.
func (c *Client) ClientID() string { return c.oauth.ClientID }

// ClientSecret exposes the configured OAuth client secret for credential
// records.
func (c *Client) ClientSecret() string { return c.oauth.ClientSecret }

// TokenURI is the endpoint refresh requests go to.
func (c *Client) TokenURI() string { return c.oauth.Endpoint.TokenURL }

// Scopes returns the scopes requested during authorization.
func (c *Client) Scopes() []string { return c.oauth.Scopes }

// AuthCodeURL builds the provider consent URL for the given state. A
// non-empty redirectURI overrides the configured redirect; the same value
// must be passed to Exchange. Offline access plus forced consent makes the
// provider return a refresh token on every connect.
func (c *Client) AuthCodeURL(state, redirectURI string) string {
	cfg := c.configFor(redirectURI)
	return cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	cfg := c.configFor(redirectURI)
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

// Refresh returns a currently-valid token, hitting the token endpoint only
// when the given one has expired. Callers should persist the result when
// the access token changed.
func (c *Client) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	fresh, err := c.oauth.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return fresh, nil
}

func (c *Client) configFor(redirectURI string) *oauth2.Config {
	if redirectURI == "" {
		return c.oauth
	}
	cfg := *c.oauth
	cfg.RedirectURL = redirectURI
	return &cfg
}

type likedVideosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// LikedSongs pages through the caller's liked videos, 50 per request,
// until the provider stops returning a next-page token.
func (c *Client) LikedSongs(ctx context.Context, tok *oauth2.Token) ([]Song, error) {
	songs := []Song{}
	pageToken := ""

	for {
		val := url.Values{}
		val.Set("part", "snippet")
		val.Set("myRating", "like")
		val.Set("maxResults", "50")
		if pageToken != "" {
			val.Set("pageToken", pageToken)
		}

		var body likedVideosResponse
		if err := c.doJSON(ctx, tok, http.MethodGet, c.apiBase+"/videos?"+val.Encode(), nil, &body); err != nil {
			return nil, fmt.Errorf("list liked videos: %w", err)
		}

		for _, it := range body.Items {
			songs = append(songs, Song{
				VideoID: it.ID,
				Title:   it.Snippet.Title,
				Channel: it.Snippet.ChannelTitle,
			})
		}

		if body.NextPageToken == "" {
			return songs, nil
		}
		pageToken = body.NextPageToken
	}
}

// CreatePlaylist makes a private playlist and returns its external id.
func (c *Client) CreatePlaylist(ctx context.Context, tok *oauth2.Token, title, description string) (string, error) {
	reqBody := map[string]any{
		"snippet": map[string]any{
			"title":       title,
			"description": description,
		},
		"status": map[string]any{
			"privacyStatus": "private",
		},
	}

	var body struct {
		ID string `json:"id"`
	}
	err := c.doJSON(ctx, tok, http.MethodPost, c.apiBase+"/playlists?part=snippet,status", reqBody, &body)
	if err != nil {
		return "", fmt.Errorf("create playlist: %w", err)
	}
	if body.ID == "" {
		return "", fmt.Errorf("create playlist: empty id in response")
	}
	return body.ID, nil
}

// AddPlaylistItems inserts videos one by one, in order, and returns how
// many made it in. It stops at the first hard failure so the caller can
// record a partial outcome.
func (c *Client) AddPlaylistItems(ctx context.Context, tok *oauth2.Token, playlistID string, videoIDs []string) (int, error) {
	added := 0
	for _, videoID := range videoIDs {
		reqBody := map[string]any{
			"snippet": map[string]any{
				"playlistId": playlistID,
				"resourceId": map[string]any{
					"kind":    "youtube#video",
					"videoId": videoID,
				},
			},
		}
		if err := c.doJSON(ctx, tok, http.MethodPost, c.apiBase+"/playlistItems?part=snippet", reqBody, nil); err != nil {
			log.Printf("provider: add playlist item %s: %v", videoID, err)
			return added, fmt.Errorf("add playlist item: %w", err)
		}
		added++
	}
	return added, nil
}

// PlaylistURL is the public watch URL for an external playlist id.
func PlaylistURL(playlistID string) string {
	return "https://music.youtube.com/playlist?list=" + playlistID
}

func (c *Client) doJSON(ctx context.Context, tok *oauth2.Token, method, rawURL string, reqBody, out any) error {
	var payload *bytes.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(b)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("youtube status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
