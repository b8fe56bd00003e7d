package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"classmeet/internal/rooms"
)

// VideoGrant scopes the bearer to one video room.
type VideoGrant struct {
	Room string `json:"room"`
}

// ChatGrant scopes the bearer to one chat service.
type ChatGrant struct {
	ServiceSID string `json:"service_sid"`
}

// Grants is the capability payload embedded in an access token.
type Grants struct {
	Identity string      `json:"identity"`
	Video    *VideoGrant `json:"video,omitempty"`
	Chat     *ChatGrant  `json:"chat,omitempty"`
}

// Claims is the JWT payload of a capability token.
type Claims struct {
	Grants Grants `json:"grants"`
	jwt.RegisteredClaims
}

// Issuer mints short-lived capability tokens signed with the service API key.
type Issuer struct {
	accountSID string
	keySID     string
	secret     []byte
	ttl        time.Duration
}

// NewIssuer creates an issuer. ttl bounds token lifetime; zero means one hour.
func NewIssuer(accountSID, keySID, secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{
		accountSID: accountSID,
		keySID:     keySID,
		secret:     []byte(secret),
		ttl:        ttl,
	}
}

// Issue mints a fresh capability token for identity carrying a video grant for
// the room and a chat grant for its chat service. Tokens are never stored.
func (i *Issuer) Issue(identity string, room rooms.Room) (string, error) {
	if identity == "" {
		return "", errors.New("identity required")
	}
	now := time.Now()
	claims := Claims{
		Grants: Grants{
			Identity: identity,
			Video:    &VideoGrant{Room: room.SID},
			Chat:     &ChatGrant{ServiceSID: room.ChatServiceSID},
		},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        i.keySID + "-" + uuid.NewString(),
			Issuer:    i.keySID,
			Subject:   i.accountSID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Decode validates a capability token and returns its claims. Used by tests
// and diagnostics; the token is otherwise opaque to this service.
func (i *Issuer) Decode(tokenStr string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return *claims, nil
}
