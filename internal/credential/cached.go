package credential

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	expirySkew = 30 * time.Second
	opaqueTTL  = time.Minute
)

// Cached memoizes tokens from next. JWTs are kept until shortly before their
// exp claim; opaque tokens for a fixed TTL. Signatures are not verified here,
// the server does that.
type Cached struct {
	next Provider
	now  func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewCached(next Provider) *Cached {
	return &Cached{next: next, now: time.Now}
}

func (c *Cached) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}
	token, err := c.next.Token(ctx)
	if err != nil {
		c.token = ""
		return "", err
	}
	c.token = token
	c.expires = c.expiry(token)
	return token, nil
}

// Invalidate drops the cached token so the next call hits the source.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Cached) expiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return c.now().Add(opaqueTTL)
	}
	return claims.ExpiresAt.Add(-expirySkew)
}
