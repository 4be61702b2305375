// Package featureflags gates optional behavior per user from a FEATURE_FLAGS string
// such as "immediate_emails=on,leaderboard_cache=25%".
package featureflags

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

const (
	// ImmediateEmails sends lifecycle emails as events happen, not only through the delayed sweep.
	ImmediateEmails = "immediate_emails"
	// LeaderboardCache serves the leaderboard from Redis.
	LeaderboardCache = "leaderboard_cache"
)

var defaults = map[string]string{
	ImmediateEmails: "on",
}

// Flag is one parsed FEATURE_FLAGS entry. Rollout is the share of users, 0..100,
// that see the flag enabled. Values that are neither boolean nor a percentage
// parse to 0.
type Flag struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Rollout int    `json:"rollout"`
}

// State is a flag evaluated for one user.
type State struct {
	Flag
	Enabled bool `json:"enabled"`
}

func parseFlag(name, value string) Flag {
	f := Flag{Name: name, Value: value}
	switch value {
	case "on", "true", "1":
		f.Rollout = 100
	case "off", "false", "0":
	default:
		if pct, ok := strings.CutSuffix(value, "%"); ok {
			if n, err := strconv.Atoi(pct); err == nil {
				f.Rollout = min(max(n, 0), 100)
			}
		}
	}
	return f
}

// Manager evaluates a fixed set of flags. A nil Manager has every flag off.
type Manager struct {
	flags map[string]Flag
}

// NewManager parses raw; malformed entries are skipped and later entries win.
func NewManager(raw string) *Manager {
	m := &Manager{flags: make(map[string]Flag, len(defaults))}
	for name, value := range defaults {
		m.flags[name] = parseFlag(name, value)
	}
	for _, entry := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(entry, "=")
		name, value = normalize(name), normalize(value)
		if !ok || name == "" || value == "" {
			continue
		}
		m.flags[name] = parseFlag(name, value)
	}
	return m
}

// Enabled reports whether name is on for userID. Partial rollouts hash the user
// into a stable bucket and are off for anonymous callers.
func (m *Manager) Enabled(name, userID string) bool {
	if m == nil {
		return false
	}
	f, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}
	return f.enabledFor(userID)
}

func (f Flag) enabledFor(userID string) bool {
	switch {
	case f.Rollout >= 100:
		return true
	case f.Rollout <= 0 || userID == "":
		return false
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(f.Name + ":" + userID))
	return int(h.Sum32()%100) < f.Rollout
}

// Evaluate returns every configured flag for userID, sorted by name.
func (m *Manager) Evaluate(userID string) []State {
	if m == nil {
		return []State{}
	}
	out := make([]State, 0, len(m.flags))
	for _, f := range m.flags {
		out = append(out, State{Flag: f, Enabled: f.enabledFor(userID)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
