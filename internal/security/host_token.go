package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"live-quiz-service/internal/domain"
)

// HostClaims binds a token to one game.
type HostClaims struct {
	PIN    string `json:"pin"`
	GameID string `json:"game_id"`
	jwt.RegisteredClaims
}

// HostTokens issues and verifies host claim tokens. A zero secret disables
// the check so local setups can host without a token.
type HostTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewHostTokens(secret string, ttl time.Duration) *HostTokens {
	return NewHostTokensWithClock(secret, ttl, time.Now)
}

// NewHostTokensWithClock is test-only for deterministic expiry.
func NewHostTokensWithClock(secret string, ttl time.Duration, now func() time.Time) *HostTokens {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &HostTokens{secret: []byte(secret), ttl: ttl, now: now}
}

func (h *HostTokens) Enabled() bool {
	return h != nil && len(h.secret) > 0
}

// Issue signs a token for the game. It returns "" when tokens are disabled.
func (h *HostTokens) Issue(pin, gameID string) (string, error) {
	if !h.Enabled() {
		return "", nil
	}
	now := h.now()
	claims := &HostClaims{
		PIN:    pin,
		GameID: gameID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   gameID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.secret)
}

// Verify checks that raw was issued for the game currently holding pin. PINs
// are reused once a game is evicted, so the game id must match as well.
func (h *HostTokens) Verify(raw, pin, gameID string) error {
	if !h.Enabled() {
		return nil
	}
	if raw == "" {
		return domain.ErrInvalidHostToken
	}
	token, err := jwt.ParseWithClaims(raw, &HostClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.secret, nil
	}, jwt.WithTimeFunc(h.now))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidHostToken, err)
	}
	claims, ok := token.Claims.(*HostClaims)
	if !ok || !token.Valid || claims.PIN != pin || claims.GameID != gameID {
		return domain.ErrInvalidHostToken
	}
	return nil
}
