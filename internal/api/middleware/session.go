package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

// Headers an upstream auth proxy sets once it has verified the caller
const (
	HeaderProfileID    = "X-Profile-ID"
	HeaderProfilePhone = "X-Profile-Phone"
	HeaderProfileEmail = "X-Profile-Email"
)

// SessionResolver turns verified caller identity into a session
type SessionResolver interface {
	SessionForProfile(ctx context.Context, profileID string) (entities.Session, error)
	SessionForIdentifier(ctx context.Context, identifier entities.Identifier) (entities.Session, error)
}

// SessionMiddleware attaches the caller session to the request context.
// Requests without identity headers pass through unauthenticated; handlers
// decide whether they need a session. Unknown profiles are rejected.
func SessionMiddleware(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				session entities.Session
				err     error
			)

			switch {
			case strings.TrimSpace(r.Header.Get(HeaderProfileID)) != "":
				session, err = resolver.SessionForProfile(r.Context(), strings.TrimSpace(r.Header.Get(HeaderProfileID)))
			case r.Header.Get(HeaderProfilePhone) != "":
				session, err = resolver.SessionForIdentifier(r.Context(), entities.PhoneIdentifier(r.Header.Get(HeaderProfilePhone)))
			case r.Header.Get(HeaderProfileEmail) != "":
				session, err = resolver.SessionForIdentifier(r.Context(), entities.EmailIdentifier(r.Header.Get(HeaderProfileEmail)))
			default:
				next.ServeHTTP(w, r)
				return
			}

			if err != nil {
				writeError(w, apperrors.HTTPStatus(err), apperrors.PublicMessage(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(entities.WithSession(r.Context(), session)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
