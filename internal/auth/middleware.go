package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-sync/internal/domain"
	apperrors "github.com/spec-kit/task-sync/pkg/util/errorutil"
)

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// RequireIdentity verifies the request's bearer token. Handlers call it before
// touching any store; missing, malformed and expired tokens get the same error.
func RequireIdentity(c *fiber.Ctx, verifier *Verifier) (domain.Identity, error) {
	token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized()
	}
	identity, err := verifier.Verify(token)
	if err != nil {
		return domain.Identity{}, apperrors.NewUnauthorized()
	}
	return identity, nil
}
