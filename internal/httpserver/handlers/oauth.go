package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

const (
	spotifyProvider = "SPOTIFY"

	spotifyScope = "streaming user-read-email user-read-private" +
		" playlist-read-private playlist-read-collaborative user-library-read" +
		" user-read-playback-state user-modify-playback-state" +
		" user-read-currently-playing user-read-recently-played"
)

type oauthTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

type oauthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// OAuthToken answers the speaker's music provider token refresh. Only
// Spotify tokens are refreshed locally.
func OAuthToken(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device := chi.URLParam(r, "device")
		provider := chi.URLParam(r, "provider")
		if provider != domain.SpotifyProviderID {
			d.Logger.Info("oauth token request for unsupported provider",
				logger.String("provider", provider),
				logger.String("device", device))
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var (
			token string
			ok    bool
		)
		if d.Credentials != nil {
			token, ok = d.Credentials.Token(r.Context(), spotifyProvider)
		}
		if !ok {
			d.Logger.Warn("oauth token refresh failed, no token available",
				logger.String("device", device))
			writeJSON(w, d, http.StatusInternalServerError, oauthErrorResponse{
				Error:            "no_token",
				ErrorDescription: "No Spotify account linked",
			})
			return
		}

		d.Logger.Info("oauth token refresh", logger.String("device", device))
		writeJSON(w, d, http.StatusOK, oauthTokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   3600,
			Scope:       spotifyScope,
		})
	}
}
