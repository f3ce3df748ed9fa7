package intersect

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}

// writeDomainError maps domain failures onto the HTTP contract. Anything
// unclassified becomes a logged 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		writeError(w, ae.status, ae.msg)
		return
	}

	var rl *rateLimitedError
	if errors.As(err, &rl) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":            rl.Error(),
			"cooldown_seconds": rl.CooldownSeconds,
		})
		return
	}

	var nd *noDataError
	if errors.As(err, &nd) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":              nd.Error(),
			"missing_member_ids": nd.Missing,
		})
		return
	}

	var is *incompleteSyncError
	if errors.As(err, &is) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":              is.Error(),
			"missing_member_ids": is.Missing,
		})
		return
	}

	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if errors.Is(err, ErrNotMember) {
		writeError(w, http.StatusForbidden, "not a group member")
		return
	}

	log.Printf("intersect: internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// randomToken returns n random bytes hex-encoded. Used for preview ids and
// OAuth states, which must be unguessable.
func randomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// fallback to insecure but should never really happen
		return hex.EncodeToString(b)
	}
	return hex.EncodeToString(b)
}

// publishEvent pushes a domain event to the broadcast channel. Best-effort:
// a missing or failing Redis never fails the request.
func (s *Server) publishEvent(ctx context.Context, eventType string, payload any) {
	if s.rdb == nil {
		return
	}

	body := map[string]any{
		"type":    eventType,
		"payload": payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return
	}

	if err := s.rdb.Publish(ctx, "broadcast", string(data)).Err(); err != nil {
		log.Printf("intersect: publish %s event: %v", eventType, err)
	}
}
