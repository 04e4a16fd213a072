package auth

import (
	"net/http"
	"time"
)

const RefreshCookieName = "refreshToken"

// RefreshCookie describes how the refresh token travels: HttpOnly, SameSite=Strict,
// Secure in production, never in a JSON body.
type RefreshCookie struct {
	Name   string
	Path   string
	Secure bool
	MaxAge time.Duration
}

func NewRefreshCookie(secure bool, maxAge time.Duration) RefreshCookie {
	return RefreshCookie{
		Name:   RefreshCookieName,
		Path:   "/",
		Secure: secure,
		MaxAge: maxAge,
	}
}

func (rc RefreshCookie) Set(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     rc.Name,
		Value:    token,
		Path:     rc.Path,
		Expires:  expiresAt,
		MaxAge:   int(rc.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   rc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (rc RefreshCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     rc.Name,
		Value:    "",
		Path:     rc.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   rc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Read returns the refresh token from r, or "" if the cookie is absent.
func (rc RefreshCookie) Read(r *http.Request) string {
	c, err := r.Cookie(rc.Name)
	if err != nil {
		return ""
	}
	return c.Value
}
