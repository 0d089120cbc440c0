// Package auth verifies usernames and passwords against a fixed credential table.
package auth

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultUsers is the built-in credential table used when none is configured.
var DefaultUsers = map[string]string{
	"admin":   "password123",
	"analyst": "data2024",
	"demo":    "demo",
}

// ErrNoUsers is returned when a Gate would accept nobody.
var ErrNoUsers = errors.New("credential table is empty")

// Gate checks credentials. It is safe for concurrent use.
type Gate struct {
	hashes map[string][]byte
	dummy  []byte
}

// NewGate hashes every password in users. A cost of 0 selects bcrypt.DefaultCost.
func NewGate(users map[string]string, cost int) (*Gate, error) {
	if len(users) == 0 {
		return nil, ErrNoUsers
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	g := &Gate{hashes: make(map[string][]byte, len(users))}
	for name, password := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %q: %w", name, err)
		}
		g.hashes[name] = hash
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("cognichat-unknown-user"), cost)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	g.dummy = dummy
	return g, nil
}

// Verify reports whether password belongs to username.
// Unknown usernames cost the same bcrypt comparison as known ones.
func (g *Gate) Verify(username, password string) bool {
	hash, ok := g.hashes[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(g.dummy, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// Usernames returns the known usernames in sorted order.
func (g *Gate) Usernames() []string {
	return slices.Sorted(maps.Keys(g.hashes))
}

// ParseUsers reads a "user:pass,user:pass" list. Surrounding whitespace is ignored.
func ParseUsers(raw string) (map[string]string, error) {
	users := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, password, ok := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || password == "" {
			return nil, fmt.Errorf("invalid credential entry %q: want user:password", entry)
		}
		if _, dup := users[name]; dup {
			return nil, fmt.Errorf("duplicate user %q", name)
		}
		users[name] = password
	}
	if len(users) == 0 {
		return nil, ErrNoUsers
	}
	return users, nil
}
