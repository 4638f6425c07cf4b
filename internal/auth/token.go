package auth

import (
	"errors"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/task-sync/internal/domain"
)

// TokenTTL is the fixed validity of an issued token.
const TokenTTL = time.Hour

// ErrRejected is returned for every token that fails verification.
var ErrRejected = errors.New("token rejected")

// Verifier issues and validates HS256 bearer tokens. It keeps no server-side state.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier builds a verifier for the given secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("signing secret is empty")
	}
	return &Verifier{secret: []byte(secret), now: time.Now}, nil
}

// WithClock returns a copy of the verifier that reads time from now.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	return &Verifier{secret: v.secret, now: now}
}

// Issue signs a token for subjectID that expires TokenTTL from now.
func (v *Verifier) Issue(subjectID int64) (string, time.Time, error) {
	expiresAt := v.now().Add(TokenTTL).Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(subjectID, 10),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(v.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify checks signature, expiry and subject format. Every failure is ErrRejected.
func (v *Verifier) Verify(tokenStr string) (domain.Identity, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !parsed.Valid {
		return domain.Identity{}, ErrRejected
	}

	subjectID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return domain.Identity{}, ErrRejected
	}
	return domain.Identity{SubjectID: subjectID, ExpiresAt: claims.ExpiresAt.Time}, nil
}
