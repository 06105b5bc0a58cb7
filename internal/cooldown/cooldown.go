// Package cooldown tracks per-user and per-guild command cooldowns in memory.
package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scope identifies which bucket throttled an invocation.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeUser
	ScopeGuild
)

func (s Scope) String() string {
	switch s {
	case ScopeUser:
		return "user"
	case ScopeGuild:
		return "guild"
	default:
		return "none"
	}
}

// Result is the outcome of a Check.
type Result struct {
	Throttled bool
	ExpiresAt time.Time
	Scope     Scope
}

type recordKey struct {
	command string
	scope   string
}

// Tracker stores cooldown expiries keyed by command and scope.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	records map[recordKey]time.Time
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{records: make(map[recordKey]time.Time)}
}

// UserKey returns the scope key for a user bucket.
func UserKey(userID string) string {
	return "user-" + userID
}

// GuildKey returns the scope key for a guild bucket. Direct messages have no
// guild, so they get a key derived from the user that cannot collide with a
// real guild id.
func GuildKey(guildID, userID string) string {
	if guildID == "" {
		return "guild-dm-" + userID
	}
	return "guild-" + guildID
}

// Check reports whether command is throttled for the user or guild at now.
// The user scope is checked first. When neither scope is active, a fresh
// record is written for every scope with a nonzero cooldown.
func (t *Tracker) Check(command, userID, guildID string, userCooldown, guildCooldown time.Duration, now time.Time) Result {
	userKey := recordKey{command: command, scope: UserKey(userID)}
	guildKey := recordKey{command: command, scope: GuildKey(guildID, userID)}

	t.mu.Lock()
	defer t.mu.Unlock()

	if userCooldown > 0 {
		if exp, ok := t.live(userKey, now); ok {
			return Result{Throttled: true, ExpiresAt: exp, Scope: ScopeUser}
		}
	}
	if guildCooldown > 0 {
		if exp, ok := t.live(guildKey, now); ok {
			return Result{Throttled: true, ExpiresAt: exp, Scope: ScopeGuild}
		}
	}

	if userCooldown > 0 {
		t.records[userKey] = now.Add(userCooldown)
	}
	if guildCooldown > 0 {
		t.records[guildKey] = now.Add(guildCooldown)
	}
	return Result{}
}

// live returns the expiry for key if it is still in the future, dropping the
// record otherwise. Callers hold t.mu.
func (t *Tracker) live(key recordKey, now time.Time) (time.Time, bool) {
	exp, ok := t.records[key]
	if !ok {
		return time.Time{}, false
	}
	if !exp.After(now) {
		delete(t.records, key)
		return time.Time{}, false
	}
	return exp, true
}

// Sweep removes every record that has expired at now and returns how many
// were removed.
func (t *Tracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for k, exp := range t.records {
		if !exp.After(now) {
			delete(t.records, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored records, expired or not.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Run sweeps expired records every interval until ctx is done.
func (t *Tracker) Run(ctx context.Context, interval time.Duration, log zerolog.Logger) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := t.Sweep(now); n > 0 {
				log.Debug().Int("removed", n).Msg("swept expired cooldowns")
			}
		}
	}
}
