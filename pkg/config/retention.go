package config

import "time"

// RetentionConfig governs how long normalized data stays in the hot
// partition window (spec §3) and how long error embeddings live before the
// TTL reaper evicts them (spec §4.5).
type RetentionConfig struct {
	// HotWindow is how far back the canonical view is expected to hold data
	// without a partition-pruning penalty. The planner does not read it:
	// query windows are bounded by MAX_TIME_WINDOW_HOURS alone.
	HotWindow time.Duration

	// EmbeddingTTL is how long an error embedding survives before the TTL
	// reaper deletes it and folds its count out of any cluster it belonged
	// to.
	EmbeddingTTL time.Duration

	// ReaperInterval is how often the TTL reaper sweeps expired embeddings.
	ReaperInterval time.Duration
}

// DefaultRetentionConfig returns the built-in retention defaults, matching
// Config's HOT_RETENTION_DAYS/EMBEDDING_TTL_DAYS defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		HotWindow:      180 * 24 * time.Hour,
		EmbeddingTTL:   7 * 24 * time.Hour,
		ReaperInterval: 1 * time.Hour,
	}
}

// FromConfig derives a RetentionConfig from the loaded Config's day counts,
// so the two stay in sync without duplicating env parsing.
func FromConfig(c *Config) *RetentionConfig {
	return &RetentionConfig{
		HotWindow:      time.Duration(c.HotRetentionDays) * 24 * time.Hour,
		EmbeddingTTL:   time.Duration(c.EmbeddingTTLDays) * 24 * time.Hour,
		ReaperInterval: 1 * time.Hour,
	}
}
