// Package featureflags evaluates operator-controlled switches such as the
// realtime vote stream.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Known flags.
const (
	// RealtimeVotes broadcasts score updates over websockets after each vote.
	RealtimeVotes = "realtime_votes"
	// CommunityRankingCache serves the top communities from redis.
	CommunityRankingCache = "community_ranking_cache"
)

// defaults apply to known flags the operator left unset.
var defaults = map[string]bool{
	RealtimeVotes:         false,
	CommunityRankingCache: true,
}

// rule is a parsed flag value. percent is the share of users the flag is on
// for; -1 marks a value that could not be parsed and is always off.
type rule struct {
	raw     string
	percent int
}

func parseRule(value string) rule {
	switch value {
	case "on", "true", "1":
		return rule{raw: value, percent: 100}
	case "off", "false", "0":
		return rule{raw: value, percent: 0}
	}
	if n, ok := strings.CutSuffix(value, "%"); ok {
		if pct, err := strconv.Atoi(n); err == nil {
			return rule{raw: value, percent: min(max(pct, 0), 100)}
		}
	}
	return rule{raw: value, percent: -1}
}

// Manager evaluates flags from a FEATURE_FLAGS list such as
// "realtime_votes=on,community_ranking_cache=off,new_feed=25%".
// Values are on/true/1, off/false/0 or N% for a deterministic per-user
// rollout that never includes anonymous users below 100%.
type Manager struct {
	rules map[string]rule
}

// NewManager parses raw. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	m := &Manager{rules: make(map[string]rule)}
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key, value = normalize(key), normalize(value)
		if !ok || key == "" || value == "" {
			continue
		}
		m.rules[key] = parseRule(value)
	}
	return m
}

// Enabled reports whether name is on for userID. Unset known flags take
// their default; unset unknown flags are off.
func (m *Manager) Enabled(name string, userID uint) bool {
	name = normalize(name)
	var r rule
	var ok bool
	if m != nil {
		r, ok = m.rules[name]
	}
	if !ok {
		return defaults[name]
	}

	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0, userID == 0:
		return false
	default:
		return rolloutBucket(name, userID) < r.percent
	}
}

// Names returns the known and configured flag names, sorted.
func (m *Manager) Names() []string {
	set := maps.Clone(defaults)
	if m != nil {
		for name := range m.rules {
			set[name] = true
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// Raw returns the configured values as written.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.rules))
	for name, r := range m.rules {
		out[name] = r.raw
	}
	return out
}

// Snapshot evaluates every known and configured flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool)
	for _, name := range m.Names() {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", name, userID)
	return int(h.Sum32() % 100)
}
