package auth

import "net/http"

// SessionCookieName is the cookie the session token rides in
const SessionCookieName = "auth_token"

// SessionCookies writes and clears the session cookie. Secure is set in
// production so the cookie only travels over TLS.
type SessionCookies struct {
	secure bool
}

func NewSessionCookies(environment string) *SessionCookies {
	return &SessionCookies{secure: environment == "production"}
}

// Set stores the token in an httpOnly lax cookie scoped to the whole site
func (sc *SessionCookies) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   sc.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the cookie immediately
func (sc *SessionCookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sc.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadToken pulls the session token from the request: cookie first, then
// an Authorization bearer header for API and CLI clients.
func ReadToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if token, err := ExtractBearer(h); err == nil {
			return token
		}
	}
	return ""
}
