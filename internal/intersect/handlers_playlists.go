package intersect

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bradcj/intersect/internal/provider"
)

// handlePreview computes the intersection of all members' liked songs and
// stores it as a short-lived preview the client can inspect before
// committing. Members only; respects the generation cooldown.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	groupID := chi.URLParam(r, "groupID")

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "group not found")
			return
		}
		log.Printf("intersect: load group %s: %v", groupID, err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if !group.HasMember(userID) {
		writeError(w, http.StatusForbidden, "not a group member")
		return
	}

	now := s.now()
	if remaining := cooldownRemaining(group.LastUpdated, now, s.cooldown); remaining > 0 {
		writeDomainError(w, rateLimited(remaining))
		return
	}

	songIDs, err := computeIntersection(ctx, s.store, group.MemberIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	p := &Preview{
		ID:        randomToken(16),
		GroupID:   group.ID,
		SongIDs:   songIDs,
		MemberIDs: group.MemberIDs,
		CreatedBy: userID,
		CreatedAt: now.UTC(),
		ExpiresAt: now.UTC().Add(s.previewTTL),
	}
	if err := s.store.CreatePreview(ctx, p); err != nil {
		log.Printf("intersect: store preview for group %s: %v", groupID, err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{
		PreviewID: p.ID,
		SongCount: len(p.SongIDs),
		SongIDs:   p.SongIDs,
		ExpiresAt: p.ExpiresAt,
	})
}

// handleCommitPlaylist turns a valid preview into an external playlist and
// records the linkage on the group. The external call is best-effort: when
// it fails the response still reports the computed intersection, with the
// outcome set to committed_partial so callers can tell the difference.
func (s *Server) handleCommitPlaylist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	groupID := chi.URLParam(r, "groupID")

	var body struct {
		PreviewID string `json:"preview_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.PreviewID == "" {
		writeError(w, http.StatusBadRequest, "missing preview_id")
		return
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "group not found")
			return
		}
		log.Printf("intersect: load group %s: %v", groupID, err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if !group.HasMember(userID) {
		writeError(w, http.StatusForbidden, "not a group member")
		return
	}

	p, err := s.store.GetPreview(ctx, body.PreviewID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "preview not found")
			return
		}
		log.Printf("intersect: load preview %s: %v", body.PreviewID, err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if p.GroupID != group.ID {
		writeError(w, http.StatusNotFound, "preview not found")
		return
	}
	now := s.now()
	if p.Expired(now) {
		writeError(w, http.StatusBadRequest, "preview expired")
		return
	}

	// Refresh before claiming the cooldown so a failed refresh does not
	// burn the group's generation window.
	tok, err := s.freshToken(ctx, userID)
	if err != nil {
		var ae *apiError
		if !errors.As(err, &ae) {
			log.Printf("intersect: commit token for %s: %v", userID, err)
		}
		writeDomainError(w, err)
		return
	}

	remaining, err := s.store.ClaimGeneration(ctx, groupID, now.UTC(), s.cooldown)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "group not found")
			return
		}
		log.Printf("intersect: claim generation for %s: %v", groupID, err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if remaining > 0 {
		writeDomainError(w, rateLimited(remaining))
		return
	}

	resp := commitResponse{
		SongCount: len(p.SongIDs),
		Outcome:   OutcomeCommitted,
	}

	songIDs := p.SongIDs
	if len(songIDs) > maxPlaylistItems {
		songIDs = songIDs[:maxPlaylistItems]
	}

	title := fmt.Sprintf("%s (Intersect)", group.Name)
	description := fmt.Sprintf("Songs everyone in %s likes.", group.Name)
	playlistID, err := s.provider.CreatePlaylist(ctx, tok, title, description)
	if err != nil {
		log.Printf("intersect: create playlist for group %s: %v", groupID, err)
		resp.Outcome = OutcomeCommittedPartial
		writeJSON(w, http.StatusOK, resp)
		return
	}

	added, addErr := s.provider.AddPlaylistItems(ctx, tok, playlistID, songIDs)
	if addErr != nil {
		log.Printf("intersect: add playlist items for group %s: %v", groupID, addErr)
		resp.Outcome = OutcomeCommittedPartial
	}

	resp.AddedCount = added
	resp.PlaylistID = playlistID
	resp.PlaylistURL = provider.PlaylistURL(playlistID)

	if err := s.store.SetPlaylist(ctx, groupID, playlistID, added, now.UTC()); err != nil {
		log.Printf("intersect: record playlist for group %s: %v", groupID, err)
		resp.Outcome = OutcomeCommittedPartial
	}

	if resp.Outcome == OutcomeCommitted {
		s.publishEvent(ctx, "group.playlist_generated", map[string]any{
			"groupId":    group.ID,
			"playlistId": playlistID,
			"songCount":  added,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
