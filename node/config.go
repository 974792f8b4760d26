package node

import "time"

// Config holds the external, caller-supplied settings a Node needs: where
// to listen, who to bootstrap through, and how eagerly to refresh.
// Populated by cmd/kadnode from flags; has no network or table dependency
// of its own.
type Config struct {
	ListenAddr      string
	Bootstrap       []string
	RefreshInterval time.Duration
}

// DefaultRefreshInterval matches the reference node's once-a-second
// bootstrap loop as the starting cadence; see Node's refresh loop for the
// backoff applied on top of it.
const DefaultRefreshInterval = 1 * time.Second

// MaxRefreshInterval caps the exponential backoff applied to idle refresh
// cycles.
const MaxRefreshInterval = 1 * time.Hour
