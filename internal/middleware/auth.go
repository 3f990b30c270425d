package middleware

import (
	"net/http"
	"strings"
	"time"
)

// publicPrefixes are reachable without logging in.
var publicPrefixes = []string{
	"/api/detect-",
	"/api/live",
	"/uploads/",
	"/auth/",
	"/healthz",
	"/static/",
	"/css/",
	"/js/",
}

// AuthMiddleware sprawdza, czy użytkownik ma ważną, podpisaną sesję
func AuthMiddleware(secret []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		// Pozwól na dostęp do detekcji, podglądu, logowania i zasobów statycznych bez uwierzytelnienia
		if r.URL.Path == "/" || r.URL.Path == "/login" || isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		// Sprawdź czy użytkownik jest zalogowany
		cookie, err := r.Cookie(SessionCookie)
		if err != nil || !VerifySession(cookie.Value, secret, time.Now()) {
			// Jeśli to zapytanie AJAX/API, zwróć 401
			if strings.HasPrefix(r.URL.Path, "/api/") ||
				strings.HasPrefix(r.URL.Path, "/logs/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"ok":false,"error":"unauthorized"}` + "\n"))
				return
			}
			// Dla zwykłych żądań przekieruj na login
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isPublic(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
