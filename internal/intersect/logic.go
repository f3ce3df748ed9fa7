package intersect

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/oauth2"
)

func (c *Credential) oauthToken() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	}
	if c.TokenExpiry != nil {
		tok.Expiry = *c.TokenExpiry
	}
	return tok
}

// freshToken loads the caller's OAuth credential and returns a currently
// valid access token, persisting any rotation back to the store so later
// calls skip the refresh round trip.
func (s *Server) freshToken(ctx context.Context, userID string) (*oauth2.Token, error) {
	cred, err := s.store.GetCredential(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errInvalid("youtube account not connected")
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if !cred.Connected() {
		return nil, errInvalid("youtube account not connected")
	}

	stored := cred.oauthToken()
	fresh, err := s.provider.Refresh(ctx, stored)
	if err != nil {
		return nil, fmt.Errorf("refresh token for %s: %w", userID, err)
	}

	if fresh.AccessToken != stored.AccessToken {
		exp := fresh.Expiry
		if err := s.store.UpdateToken(ctx, userID, fresh.AccessToken, &exp); err != nil {
			// next call refreshes again; not fatal
			log.Printf("intersect: persist refreshed token for %s: %v", userID, err)
		}
	}
	return fresh, nil
}
