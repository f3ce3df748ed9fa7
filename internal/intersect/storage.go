package intersect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store is the persistence boundary the handlers are written against. A
// PostgresStore backs it in production; tests substitute a MockStore.
type Store interface {
	// Credentials
	UpsertCredential(ctx context.Context, cred *Credential) error
	GetCredential(ctx context.Context, userID string) (*Credential, error)
	UpdateToken(ctx context.Context, userID, accessToken string, expiry *time.Time) error
	SyncLikedSongs(ctx context.Context, userID string, songIDs []string) (*Credential, error)
	GetLikedSongIDs(ctx context.Context, userID string) ([]string, error)

	// Groups
	CreateGroup(ctx context.Context, name, hostUserID string) (*Group, error)
	GetGroup(ctx context.Context, groupID string) (*Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]GroupSummary, error)
	AddMember(ctx context.Context, groupID, userID string) error
	ClaimGeneration(ctx context.Context, groupID string, now time.Time, cooldown time.Duration) (time.Duration, error)
	SetPlaylist(ctx context.Context, groupID, playlistID string, songCount int, updatedAt time.Time) error

	// Previews
	CreatePreview(ctx context.Context, p *Preview) error
	GetPreview(ctx context.Context, previewID string) (*Preview, error)
}

// DB is the pgx surface PostgresStore needs. It is implemented by
// *pgxpool.Pool and can be mocked for testing.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func AutoMigrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS user_credentials(
          user_id TEXT PRIMARY KEY,
          access_token TEXT NOT NULL DEFAULT '',
          refresh_token TEXT NOT NULL DEFAULT '',
          token_uri TEXT NOT NULL DEFAULT '',
          client_id TEXT NOT NULL DEFAULT '',
          client_secret TEXT NOT NULL DEFAULT '',
          scopes TEXT[] NOT NULL DEFAULT '{}',
          token_expiry TIMESTAMPTZ,
          liked_song_ids TEXT[] NOT NULL DEFAULT '{}',
          synced_at TIMESTAMPTZ,
          sync_count INT NOT NULL DEFAULT 0,
          updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
      )
  `); err != nil {
		return fmt.Errorf("migrate user_credentials: %w", err)
	}

	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS groups(
          id uuid PRIMARY KEY,
          name TEXT NOT NULL,
          host_user_id TEXT NOT NULL,
          created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
          last_updated TIMESTAMPTZ,
          playlist_id TEXT,
          playlist_song_count INT NOT NULL DEFAULT 0
      )
  `); err != nil {
		return fmt.Errorf("migrate groups: %w", err)
	}

	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS group_members(
          group_id uuid NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
          user_id TEXT NOT NULL,
          joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
          PRIMARY KEY(group_id, user_id)
      )
  `); err != nil {
		return fmt.Errorf("migrate group_members: %w", err)
	}

	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS previews(
          id TEXT PRIMARY KEY,
          group_id uuid NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
          song_ids TEXT[] NOT NULL DEFAULT '{}',
          member_ids TEXT[] NOT NULL DEFAULT '{}',
          created_by TEXT NOT NULL,
          created_at TIMESTAMPTZ NOT NULL,
          expires_at TIMESTAMPTZ NOT NULL
      )
  `); err != nil {
		return fmt.Errorf("migrate previews: %w", err)
	}

	_, _ = db.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id)`)

	return nil
}

func (s *PostgresStore) UpsertCredential(ctx context.Context, cred *Credential) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO user_credentials(user_id, access_token, refresh_token, token_uri,
                                     client_id, client_secret, scopes, token_expiry, updated_at)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,now())
        ON CONFLICT (user_id) DO UPDATE SET
            access_token = EXCLUDED.access_token,
            refresh_token = CASE WHEN EXCLUDED.refresh_token <> '' THEN EXCLUDED.refresh_token
                                 ELSE user_credentials.refresh_token END,
            token_uri = EXCLUDED.token_uri,
            client_id = EXCLUDED.client_id,
            client_secret = EXCLUDED.client_secret,
            scopes = EXCLUDED.scopes,
            token_expiry = EXCLUDED.token_expiry,
            updated_at = now()
    `, cred.UserID, cred.AccessToken, cred.RefreshToken, cred.TokenURI,
		cred.ClientID, cred.ClientSecret, cred.Scopes, cred.TokenExpiry)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCredential(ctx context.Context, userID string) (*Credential, error) {
	var c Credential
	err := s.db.QueryRow(ctx, `
        SELECT user_id, access_token, refresh_token, token_uri, client_id, client_secret,
               scopes, token_expiry, liked_song_ids, synced_at, sync_count, updated_at
        FROM user_credentials WHERE user_id=$1
    `, userID).Scan(
		&c.UserID, &c.AccessToken, &c.RefreshToken, &c.TokenURI, &c.ClientID, &c.ClientSecret,
		&c.Scopes, &c.TokenExpiry, &c.LikedSongIDs, &c.SyncedAt, &c.SyncCount, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) UpdateToken(ctx context.Context, userID, accessToken string, expiry *time.Time) error {
	_, err := s.db.Exec(ctx, `
        UPDATE user_credentials SET access_token=$2, token_expiry=$3, updated_at=now()
        WHERE user_id=$1
    `, userID, accessToken, expiry)
	return err
}

func (s *PostgresStore) SyncLikedSongs(ctx context.Context, userID string, songIDs []string) (*Credential, error) {
	if songIDs == nil {
		songIDs = []string{}
	}
	var c Credential
	err := s.db.QueryRow(ctx, `
        INSERT INTO user_credentials(user_id, liked_song_ids, synced_at, sync_count, updated_at)
        VALUES($1,$2,now(),1,now())
        ON CONFLICT (user_id) DO UPDATE SET
            liked_song_ids = EXCLUDED.liked_song_ids,
            synced_at = now(),
            sync_count = user_credentials.sync_count + 1,
            updated_at = now()
        RETURNING user_id, liked_song_ids, synced_at, sync_count
    `, userID, songIDs).Scan(&c.UserID, &c.LikedSongIDs, &c.SyncedAt, &c.SyncCount)
	if err != nil {
		return nil, fmt.Errorf("sync liked songs: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) GetLikedSongIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.QueryRow(ctx, `
        SELECT liked_song_ids FROM user_credentials WHERE user_id=$1
    `, userID).Scan(&ids)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ids, nil
}

// CreateGroup inserts the group and its host membership in one transaction
// so a group can never exist without its host as a member.
func (s *PostgresStore) CreateGroup(ctx context.Context, name, hostUserID string) (*Group, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	g := &Group{
		ID:         uuid.NewString(),
		Name:       name,
		HostUserID: hostUserID,
		MemberIDs:  []string{hostUserID},
	}
	err = tx.QueryRow(ctx, `
        INSERT INTO groups(id, name, host_user_id) VALUES($1,$2,$3)
        RETURNING created_at
    `, g.ID, g.Name, g.HostUserID).Scan(&g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO group_members(group_id, user_id) VALUES($1,$2)
    `, g.ID, hostUserID); err != nil {
		return nil, fmt.Errorf("insert host membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *PostgresStore) GetGroup(ctx context.Context, groupID string) (*Group, error) {
	var g Group
	err := s.db.QueryRow(ctx, `
        SELECT id, name, host_user_id, created_at, last_updated, playlist_id, playlist_song_count
        FROM groups WHERE id=$1
    `, groupID).Scan(
		&g.ID, &g.Name, &g.HostUserID, &g.CreatedAt, &g.LastUpdated, &g.PlaylistID, &g.PlaylistSongCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
        SELECT user_id FROM group_members WHERE group_id=$1 ORDER BY joined_at, user_id
    `, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		g.MemberIDs = append(g.MemberIDs, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *PostgresStore) ListGroupsForUser(ctx context.Context, userID string) ([]GroupSummary, error) {
	rows, err := s.db.Query(ctx, `
        SELECT g.id, g.name, g.host_user_id, g.created_at, g.last_updated, g.playlist_id,
               (SELECT COUNT(*) FROM group_members c WHERE c.group_id = g.id)
        FROM groups g
        JOIN group_members m ON m.group_id = g.id
        WHERE m.user_id = $1
        ORDER BY g.created_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []GroupSummary{}
	for rows.Next() {
		var (
			gs   GroupSummary
			host string
		)
		if err := rows.Scan(&gs.ID, &gs.Name, &host, &gs.CreatedAt, &gs.LastUpdated, &gs.PlaylistID, &gs.MemberCount); err != nil {
			return nil, err
		}
		gs.IsHost = host == userID
		groups = append(groups, gs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

// AddMember is idempotent: joining twice is not an error and membership is
// append-only.
func (s *PostgresStore) AddMember(ctx context.Context, groupID, userID string) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO group_members(group_id, user_id) VALUES($1,$2)
        ON CONFLICT (group_id, user_id) DO NOTHING
    `, groupID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23503: group row absent
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ClaimGeneration atomically stamps last_updated when the group is outside
// its cooldown window. A zero return means the claim succeeded; otherwise
// the remaining cooldown is returned and nothing was written.
func (s *PostgresStore) ClaimGeneration(ctx context.Context, groupID string, now time.Time, cooldown time.Duration) (time.Duration, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE groups SET last_updated=$2
        WHERE id=$1 AND (last_updated IS NULL OR last_updated <= $3)
    `, groupID, now, now.Add(-cooldown))
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 1 {
		return 0, nil
	}

	var lastUpdated *time.Time
	err = s.db.QueryRow(ctx, `SELECT last_updated FROM groups WHERE id=$1`, groupID).Scan(&lastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	remaining := cooldownRemaining(lastUpdated, now, cooldown)
	if remaining <= 0 {
		// lost a race with a concurrent claim that just stamped the group
		remaining = cooldown
	}
	return remaining, nil
}

func (s *PostgresStore) SetPlaylist(ctx context.Context, groupID, playlistID string, songCount int, updatedAt time.Time) error {
	_, err := s.db.Exec(ctx, `
        UPDATE groups SET playlist_id=$2, playlist_song_count=$3, last_updated=$4
        WHERE id=$1
    `, groupID, playlistID, songCount, updatedAt)
	return err
}

func (s *PostgresStore) CreatePreview(ctx context.Context, p *Preview) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO previews(id, group_id, song_ids, member_ids, created_by, created_at, expires_at)
        VALUES($1,$2,$3,$4,$5,$6,$7)
    `, p.ID, p.GroupID, p.SongIDs, p.MemberIDs, p.CreatedBy, p.CreatedAt, p.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert preview: %w", err)
	}
	return nil
}

// GetPreview returns the stored record regardless of expiry. Expired rows
// are never deleted here; callers must check Expired themselves.
func (s *PostgresStore) GetPreview(ctx context.Context, previewID string) (*Preview, error) {
	var p Preview
	err := s.db.QueryRow(ctx, `
        SELECT id, group_id, song_ids, member_ids, created_by, created_at, expires_at
        FROM previews WHERE id=$1
    `, previewID).Scan(
		&p.ID, &p.GroupID, &p.SongIDs, &p.MemberIDs, &p.CreatedBy, &p.CreatedAt, &p.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
