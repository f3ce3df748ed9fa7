package intersect

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// computeIntersection loads every member's cached liked-songs list and
// intersects them. A member with no stored record or an empty list has not
// synced and blocks the computation: if everyone is missing the result is a
// noDataError, if only some are missing it is an incompleteSyncError naming
// all of them. A partial intersection is never computed silently.
func computeIntersection(ctx context.Context, store Store, memberIDs []string) ([]string, error) {
	var (
		lists   [][]string
		missing []string
	)
	for _, uid := range memberIDs {
		ids, err := store.GetLikedSongIDs(ctx, uid)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("load liked songs for %s: %w", uid, err)
		}
		if len(ids) == 0 {
			missing = append(missing, uid)
			continue
		}
		lists = append(lists, ids)
	}

	if len(lists) == 0 {
		return nil, &noDataError{Missing: missing}
	}
	if len(missing) > 0 {
		return nil, &incompleteSyncError{Missing: missing}
	}
	return intersectAll(lists), nil
}

// intersectAll returns the ids present in every list. Order-independent in
// the set sense; the returned slice follows the first list's order so the
// output is deterministic. Duplicates within a list count once.
func intersectAll(lists [][]string) []string {
	out := []string{}
	if len(lists) == 0 {
		return out
	}

	candidates := make(map[string]bool, len(lists[0]))
	for _, id := range lists[0] {
		candidates[id] = true
	}
	for _, list := range lists[1:] {
		kept := make(map[string]bool, len(list))
		for _, id := range list {
			if candidates[id] {
				kept[id] = true
			}
		}
		candidates = kept
	}

	seen := make(map[string]bool, len(candidates))
	for _, id := range lists[0] {
		if candidates[id] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// cooldownRemaining converts a group's last generation time into the wait
// still owed under the cooldown window. Zero means generation is allowed.
func cooldownRemaining(lastUpdated *time.Time, now time.Time, cooldown time.Duration) time.Duration {
	if lastUpdated == nil {
		return 0
	}
	elapsed := now.Sub(*lastUpdated)
	if elapsed >= cooldown {
		return 0
	}
	return cooldown - elapsed
}
