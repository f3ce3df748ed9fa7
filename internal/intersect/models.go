package intersect

import "time"

// Credential holds a user's music-provider OAuth material together with the
// cached liked-songs list. One row per user, created on first connect or
// first sync, never deleted.
type Credential struct {
	UserID       string     `json:"user_id"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenURI     string     `json:"-"`
	ClientID     string     `json:"-"`
	ClientSecret string     `json:"-"`
	Scopes       []string   `json:"scopes,omitempty"`
	TokenExpiry  *time.Time `json:"-"`
	LikedSongIDs []string   `json:"liked_song_ids,omitempty"`
	SyncedAt     *time.Time `json:"synced_at,omitempty"`
	SyncCount    int        `json:"sync_count"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Connected reports whether the credential carries a usable OAuth grant.
func (c *Credential) Connected() bool {
	return c != nil && (c.RefreshToken != "" || c.AccessToken != "")
}

type Group struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	HostUserID        string     `json:"host_user_id"`
	MemberIDs         []string   `json:"member_ids"`
	CreatedAt         time.Time  `json:"created_at"`
	LastUpdated       *time.Time `json:"last_updated,omitempty"`
	PlaylistID        *string    `json:"playlist_id,omitempty"`
	PlaylistSongCount int        `json:"playlist_song_count"`
}

// HasMember reports membership; the host is always a member.
func (g *Group) HasMember(userID string) bool {
	for _, id := range g.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// GroupSummary is the list-view projection returned by the groups index.
type GroupSummary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	MemberCount int        `json:"member_count"`
	IsHost      bool       `json:"is_host"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	PlaylistID  *string    `json:"playlist_id,omitempty"`
}

// MemberStatus tells the group detail view who has synced and who blocks
// playlist generation.
type MemberStatus struct {
	UserID     string `json:"user_id"`
	IsHost     bool   `json:"is_host"`
	Synced     bool   `json:"synced"`
	LikedCount int    `json:"liked_count"`
}

// Preview is an immutable snapshot of a computed intersection. Expiry is
// advisory: the store never deletes previews, readers must compare
// ExpiresAt against the clock before trusting one.
type Preview struct {
	ID        string    `json:"preview_id"`
	GroupID   string    `json:"group_id"`
	SongIDs   []string  `json:"song_ids"`
	MemberIDs []string  `json:"member_ids"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the preview is past its TTL at the given instant.
func (p *Preview) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// OAuthState binds an in-flight OAuth flow to the user who started it.
// Consumed exactly once by the callback.
type OAuthState struct {
	UserID      string    `json:"user_id"`
	RedirectURI string    `json:"redirect_uri,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Commit outcomes. CommittedPartial means the intersection was computed and
// recorded but the external playlist call failed; the two are deliberately
// distinguishable to callers.
const (
	OutcomeCommitted        = "committed"
	OutcomeCommittedPartial = "committed_partial"
)

type commitResponse struct {
	SongCount   int    `json:"song_count"`
	AddedCount  int    `json:"added_count"`
	PlaylistID  string `json:"playlist_id,omitempty"`
	PlaylistURL string `json:"playlist_url,omitempty"`
	Outcome     string `json:"outcome"`
}

type previewResponse struct {
	PreviewID string    `json:"preview_id"`
	SongCount int       `json:"song_count"`
	SongIDs   []string  `json:"song_ids"`
	ExpiresAt time.Time `json:"expires_at"`
}

type syncResponse struct {
	Count    int       `json:"count"`
	SyncedAt time.Time `json:"synced_at"`
}

type meResponse struct {
	UserID           string     `json:"user_id"`
	YouTubeConnected bool       `json:"youtube_connected"`
	SyncedAt         *time.Time `json:"synced_at,omitempty"`
	SyncCount        int        `json:"sync_count"`
	LikedCount       int        `json:"liked_count"`
}
