package intersect

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

const oauthSuccessPage = `<html>
    <head><title>Intersect - Connected!</title></head>
    <body style="font-family: Arial; text-align: center; padding: 50px;">
        <h1>Successfully Connected!</h1>
        <p>You can close this window and return to Intersect.</p>
        <script>
            if (window.opener) {
                window.opener.postMessage('oauth_success', '*');
                window.close();
            }
        </script>
    </body>
</html>`

// handleOAuthStart begins the YouTube account link for the current user.
// The generated state binds the eventual callback to this user; the client
// opens the returned URL in a popup.
func (s *Server) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var body struct {
		RedirectURI string `json:"redirect_uri"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	state := randomToken(16)
	data := OAuthState{
		UserID:      userID,
		RedirectURI: body.RedirectURI,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.states.Put(ctx, state, data, oauthStateTTL); err != nil {
		log.Printf("intersect: store oauth state: %v", err)
		writeError(w, http.StatusInternalServerError, "could not start oauth flow")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"authorization_url": s.provider.AuthCodeURL(state, body.RedirectURI),
	})
}

// handleOAuthCallback is the provider's redirect target. No bearer token:
// identity comes from the consumed state record. The state is redeemed
// atomically, so a duplicate callback gets a 404 instead of a second
// exchange.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		http.Error(w, "Missing state or code parameter", http.StatusBadRequest)
		return
	}

	data, err := s.states.Consume(ctx, state)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "Invalid state parameter", http.StatusNotFound)
			return
		}
		log.Printf("intersect: consume oauth state: %v", err)
		http.Error(w, "OAuth flow failed", http.StatusInternalServerError)
		return
	}

	tok, err := s.provider.Exchange(ctx, code, data.RedirectURI)
	if err != nil {
		log.Printf("intersect: oauth exchange for %s: %v", data.UserID, err)
		http.Error(w, "OAuth flow failed", http.StatusInternalServerError)
		return
	}

	cred := &Credential{
		UserID:       data.UserID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenURI:     s.provider.TokenURI(),
		ClientID:     s.provider.ClientID(),
		ClientSecret: s.provider.ClientSecret(),
		Scopes:       s.provider.Scopes(),
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		cred.TokenExpiry = &expiry
	}
	if err := s.store.UpsertCredential(ctx, cred); err != nil {
		log.Printf("intersect: save credential for %s: %v", data.UserID, err)
		http.Error(w, "OAuth flow failed", http.StatusInternalServerError)
		return
	}

	s.publishEvent(ctx, "oauth.connected", map[string]string{"userId": data.UserID})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(oauthSuccessPage))
}
