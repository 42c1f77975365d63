// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

package web

import "net/http"

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "access_token"

// setSessionCookie stores token in an HttpOnly, SameSite=Lax session cookie.
// No Max-Age is set; the token's own expiry bounds the session.
func setSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie tells the browser to drop the session cookie. The token
// itself stays valid until it expires.
func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionToken returns the cookie value, or "" when the cookie is absent.
func sessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
