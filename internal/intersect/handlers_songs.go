package intersect

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

// handleSyncSongs replaces the caller's cached liked-songs list with the
// ids the client sends. The list is trusted verbatim; an empty array is a
// valid sync ("no liked songs"), a missing field is not.
func (s *Server) handleSyncSongs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var body struct {
		LikedSongIDs []string `json:"liked_song_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.LikedSongIDs == nil {
		writeError(w, http.StatusBadRequest, "missing liked_song_ids")
		return
	}

	cred, err := s.store.SyncLikedSongs(ctx, userID, body.LikedSongIDs)
	if err != nil {
		log.Printf("intersect: sync songs for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	resp := syncResponse{Count: len(cred.LikedSongIDs)}
	if cred.SyncedAt != nil {
		resp.SyncedAt = *cred.SyncedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLikedSongs fetches the caller's liked songs straight from the
// provider. Read-only: the cached list changes only through sync.
func (s *Server) handleLikedSongs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	tok, err := s.freshToken(ctx, userID)
	if err != nil {
		var ae *apiError
		if !errors.As(err, &ae) {
			log.Printf("intersect: liked songs token for %s: %v", userID, err)
		}
		writeDomainError(w, err)
		return
	}

	songs, err := s.provider.LikedSongs(ctx, tok)
	if err != nil {
		log.Printf("intersect: fetch liked songs for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "could not fetch liked songs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"songs": songs,
		"count": len(songs),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	resp := meResponse{UserID: userID}
	cred, err := s.store.GetCredential(ctx, userID)
	switch {
	case err == nil:
		resp.YouTubeConnected = cred.Connected()
		resp.SyncedAt = cred.SyncedAt
		resp.SyncCount = cred.SyncCount
		resp.LikedCount = len(cred.LikedSongIDs)
	case errors.Is(err, ErrNotFound):
		// first visit, nothing stored yet
	default:
		log.Printf("intersect: load profile for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
