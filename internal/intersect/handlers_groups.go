package intersect

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "missing name")
		return
	}

	group, err := s.store.CreateGroup(ctx, body.Name, userID)
	if err != nil {
		log.Printf("intersect: create group: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, "group.created", map[string]any{
		"groupId": group.ID,
		"name":    group.Name,
		"hostId":  group.HostUserID,
	})

	writeJSON(w, http.StatusOK, group)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		log.Printf("intersect: list groups for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// handleGetGroup returns the full group document plus per-member sync
// status, so the client can show who still blocks playlist generation.
// Members only.
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
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

	members := make([]MemberStatus, 0, len(group.MemberIDs))
	for _, uid := range group.MemberIDs {
		ms := MemberStatus{UserID: uid, IsHost: uid == group.HostUserID}
		ids, err := s.store.GetLikedSongIDs(ctx, uid)
		if err != nil && !errors.Is(err, ErrNotFound) {
			log.Printf("intersect: member status %s: %v", uid, err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		ms.Synced = len(ids) > 0
		ms.LikedCount = len(ids)
		members = append(members, ms)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":                  group.ID,
		"name":                group.Name,
		"host_user_id":        group.HostUserID,
		"is_host":             group.HostUserID == userID,
		"members":             members,
		"member_count":        len(group.MemberIDs),
		"created_at":          group.CreatedAt,
		"last_updated":        group.LastUpdated,
		"playlist_id":         group.PlaylistID,
		"playlist_song_count": group.PlaylistSongCount,
	})
}

// handleJoinGroup appends the caller to the member set. Idempotent:
// joining a group twice is a no-op, never an error.
func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
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

	alreadyMember := group.HasMember(userID)
	if !alreadyMember {
		if err := s.store.AddMember(ctx, groupID, userID); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "group not found")
				return
			}
			log.Printf("intersect: join group %s: %v", groupID, err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		group.MemberIDs = append(group.MemberIDs, userID)

		s.publishEvent(ctx, "group.member_joined", map[string]any{
			"groupId": group.ID,
			"userId":  userID,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":           group.ID,
		"name":         group.Name,
		"member_count": len(group.MemberIDs),
		"joined":       !alreadyMember,
	})
}
