package intersect

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Defaults for the preview/commit workflow. TTL and cooldown are
// overridable through Server options, the item cap is a provider-side
// batch limit and stays fixed.
const (
	defaultPreviewTTL         = 10 * time.Minute
	defaultGenerationCooldown = time.Hour
	oauthStateTTL             = 10 * time.Minute
	maxPlaylistItems          = 500
)

var (
	ErrNotFound  = errors.New("not found")
	ErrNotMember = errors.New("not a group member")
)

// apiError carries an HTTP status through the domain layer so handlers can
// map failures without string matching.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func errNotFound(msg string) error {
	return &apiError{status: http.StatusNotFound, msg: msg}
}

func errInvalid(msg string) error {
	return &apiError{status: http.StatusBadRequest, msg: msg}
}

func errForbidden(msg string) error {
	return &apiError{status: http.StatusForbidden, msg: msg}
}

// noDataError: every group member is missing a synced liked-songs list.
type noDataError struct {
	Missing []string
}

func (e *noDataError) Error() string {
	return "no member has synced liked songs"
}

// incompleteSyncError: at least one member has data but others do not. The
// intersection is never computed over a subset; all blocking members are
// named.
type incompleteSyncError struct {
	Missing []string
}

func (e *incompleteSyncError) Error() string {
	return fmt.Sprintf("%d member(s) have not synced liked songs", len(e.Missing))
}

// rateLimitedError carries the remaining cooldown for the 429 payload.
type rateLimitedError struct {
	CooldownSeconds int
}

func (e *rateLimitedError) Error() string {
	return fmt.Sprintf("playlist generation on cooldown for %ds", e.CooldownSeconds)
}

func rateLimited(remaining time.Duration) *rateLimitedError {
	secs := int(remaining / time.Second)
	if secs <= 0 {
		secs = 1
	}
	return &rateLimitedError{CooldownSeconds: secs}
}
