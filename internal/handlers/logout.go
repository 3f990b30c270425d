package handlers

import (
	"net/http"
)

// LogoutHandler clears the authentication cookie.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {

	http.SetCookie(w, &http.Cookie{
		Name:   AuthCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1, //Deleting cookie
	})

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true}, nil)
}
