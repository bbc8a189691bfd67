package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/uncannyvalley/comicshop-backend/pkg/logger"
)

const (
	// SessionCookieName carries the anonymous cart identity between requests.
	SessionCookieName = "cart_session"

	sessionCookieMaxAge = 30 * 24 * 60 * 60
)

// Session mints a guest session key on first contact and carries it through
// the context on every request. Authenticated requests keep their cookie too;
// the cart handlers prefer the user identity when both are present.
func Session(logg *logger.Logger, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				key = cookie.Value
			}
			if key == "" {
				key = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    key,
					Path:     "/",
					MaxAge:   sessionCookieMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := WithSessionKey(r.Context(), key)
			if logg != nil {
				ctx = logg.WithSessionKey(ctx, key)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
