// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Region identifies a matchmaking region. Values are wire-stable; clients send
// them as integers in beginGameSessionSearch payloads.
type Region int

const (
	RegionLocal Region = iota
	RegionAU
)

// Valid reports whether r is a known region.
func (r Region) Valid() bool {
	return r >= RegionLocal && r <= RegionAU
}

func (r Region) String() string {
	switch r {
	case RegionLocal:
		return "LOCAL"
	case RegionAU:
		return "AU"
	default:
		return fmt.Sprintf("Region(%d)", int(r))
	}
}

// GameType identifies a queueable game mode.
type GameType int

const (
	GameTypeNone GameType = iota
	GameTypeCustom
	GameTypeRanked
)

// Valid reports whether gt is a queueable game type. NONE is never queueable.
func (gt GameType) Valid() bool {
	return gt == GameTypeCustom || gt == GameTypeRanked
}

func (gt GameType) String() string {
	switch gt {
	case GameTypeNone:
		return "NONE"
	case GameTypeCustom:
		return "CUSTOM"
	case GameTypeRanked:
		return "RANKED"
	default:
		return fmt.Sprintf("GameType(%d)", int(gt))
	}
}

// TeamSize is the per-team player capacity for an assembled match.
const TeamSize = 5

// PlayersRequired returns the minimum total player count needed before a
// match candidate for gt proceeds to server allocation. The defaults are
// deliberately low (1) for both queueable modes; override per mode with
// PLAYERS_REQUIRED_CUSTOM / PLAYERS_REQUIRED_RANKED.
func PlayersRequired(gt GameType) int {
	switch gt {
	case GameTypeCustom:
		return getEnvInt("PLAYERS_REQUIRED_CUSTOM", 1)
	case GameTypeRanked:
		return getEnvInt("PLAYERS_REQUIRED_RANKED", 1)
	default:
		return 0
	}
}

// Matchmaker holds the timing knobs for allocation and the ready-up quorum.
type Matchmaker struct {
	// AllocateAttempts is how many times the allocator polls for a free
	// game server before giving up.
	AllocateAttempts int
	// AllocateRetryInterval is the sleep between allocation attempts.
	AllocateRetryInterval time.Duration
	// PendingMatchTTL bounds how long the pending-match payload lives in
	// the ephemeral store.
	PendingMatchTTL time.Duration
	// ReadyCountTTL bounds the paired acknowledgement counter.
	ReadyCountTTL time.Duration
	// AckWindow is the maximum age of a gameReadyUp timestamp; older acks
	// are dropped regardless of store TTLs.
	AckWindow time.Duration
}

// DefaultMatchmaker returns the matchmaker knobs, with the retry interval
// overridable via ALLOCATE_RETRY_INTERVAL (e.g. "10s").
func DefaultMatchmaker() Matchmaker {
	return Matchmaker{
		AllocateAttempts:      3,
		AllocateRetryInterval: getEnvDuration("ALLOCATE_RETRY_INTERVAL", 10*time.Second),
		PendingMatchTTL:       20 * time.Second,
		ReadyCountTTL:         30 * time.Second,
		AckWindow:             30 * time.Second,
	}
}

// ListenAddr returns the coordinator's HTTP listen address (PORT env, default 8080).
func ListenAddr() string {
	return ":" + getEnv("PORT", "8080")
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// getEnvDuration is a helper to parse an environment variable as a duration, else a default value.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
