package upstream

import (
	"errors"
	"strings"
	"sync"
)

var ErrNoCredentialLines = errors.New("no Authorization or Cookie line found in header block")

// Credentials holds the process-wide shop session state. The admin surface
// may replace it at any time, including mid-sweep; requests capture the
// values at construction time.
type Credentials struct {
	mu            sync.RWMutex
	authorization string
	cookie        string
}

func NewCredentials(authorization, cookie string) *Credentials {
	return &Credentials{authorization: authorization, cookie: cookie}
}

// Snapshot returns the current authorization and cookie values.
func (c *Credentials) Snapshot() (authorization, cookie string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authorization, c.cookie
}

// Replace swaps both values. Empty strings clear the corresponding header.
func (c *Credentials) Replace(authorization, cookie string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authorization = authorization
	c.cookie = cookie
}

// ReplaceFromHeaderBlock parses a raw header block (one "Name: value" pair
// per line, as copied from browser dev tools) and installs the Authorization
// and Cookie values it finds. Lines it does not recognize are ignored.
func (c *Credentials) ReplaceFromHeaderBlock(raw string) error {
	var authorization, cookie string
	found := false

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "authorization":
			authorization = value
			found = true
		case "cookie":
			cookie = value
			found = true
		}
	}

	if !found {
		return ErrNoCredentialLines
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if authorization != "" {
		c.authorization = authorization
	}
	if cookie != "" {
		c.cookie = cookie
	}
	return nil
}
