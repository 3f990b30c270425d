package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"deepfake-detector/internal/config"
	"deepfake-detector/internal/logger"
	"deepfake-detector/internal/middleware"
)

// AuthCookie is the cookie set after a successful login.
const AuthCookie = middleware.SessionCookie

func LoginHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", logger)
			return
		}
		password := r.FormValue("password")
		if subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) != 1 {
			logger.Warning("🔒 Failed login attempt from %s", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "invalid password", logger)
			return
		}
		// Ustaw podpisane cookie po poprawnym logowaniu
		now := time.Now()
		http.SetCookie(w, &http.Cookie{
			Name:    AuthCookie,
			Value:   middleware.NewSession([]byte(cfg.SessionSecret), cfg.SessionTTL, now),
			Path:    "/",
			Expires: now.Add(cfg.SessionTTL),
			// Secure: true, // odkomentuj jeśli używasz HTTPS
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true}, logger)
	}
}
