package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func findCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatalf("session cookie not set")
	return nil
}

func TestSetSessionCookie(t *testing.T) {
	sc := NewSessionCookies("development")
	rec := httptest.NewRecorder()
	sc.Set(rec, "tok123")

	c := findCookie(t, rec)
	if c.Value != "tok123" {
		t.Fatalf("expected tok123, got %s", c.Value)
	}
	if !c.HttpOnly {
		t.Fatalf("expected httpOnly cookie")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected SameSite=Lax")
	}
	if c.Path != "/" {
		t.Fatalf("expected Path=/, got %s", c.Path)
	}
	if c.Secure {
		t.Fatalf("expected Secure off outside production")
	}
	if c.MaxAge != int(TokenTTL.Seconds()) {
		t.Fatalf("expected MaxAge %d, got %d", int(TokenTTL.Seconds()), c.MaxAge)
	}
}

func TestSetSessionCookieSecureInProduction(t *testing.T) {
	sc := NewSessionCookies("production")
	rec := httptest.NewRecorder()
	sc.Set(rec, "tok123")

	if c := findCookie(t, rec); !c.Secure {
		t.Fatalf("expected Secure cookie in production")
	}
}

func TestClearSessionCookie(t *testing.T) {
	sc := NewSessionCookies("development")
	rec := httptest.NewRecorder()
	sc.Clear(rec)

	c := findCookie(t, rec)
	if c.Value != "" {
		t.Fatalf("expected empty value, got %s", c.Value)
	}
	if c.MaxAge >= 0 {
		t.Fatalf("expected negative MaxAge to expire the cookie, got %d", c.MaxAge)
	}
}

func TestReadTokenPrefersCookie(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "from-cookie"})
	r.Header.Set("Authorization", "Bearer from-header")

	if got := ReadToken(r); got != "from-cookie" {
		t.Fatalf("expected cookie token, got %s", got)
	}
}

func TestReadTokenFallsBackToBearer(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer from-header")

	if got := ReadToken(r); got != "from-header" {
		t.Fatalf("expected bearer token, got %s", got)
	}

	bare := httptest.NewRequest("GET", "/", nil)
	if got := ReadToken(bare); got != "" {
		t.Fatalf("expected empty token, got %s", got)
	}
}
