package models

import "time"

// SourceTier orders the submission providers.
type SourceTier string

const (
	TierRemote  SourceTier = "remote"
	TierCache   SourceTier = "cache"
	TierBuiltin SourceTier = "builtin"
)

// LoadResult reports the outcome of a provider chain run.
type LoadResult struct {
	Source   string     `json:"source"`
	Tier     SourceTier `json:"tier"`
	Count    int        `json:"count"`
	Persist  bool       `json:"persisted"`
	LoadedAt time.Time  `json:"loaded_at"`
}
