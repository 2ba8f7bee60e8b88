package domain

// MetricDefinition is static reference data describing one tracked metric.
// Read-only at runtime; seeded by migration.
type MetricDefinition struct {
	ID             int     `json:"id"`
	Key            string  `json:"key"`
	Label          string  `json:"label"`
	Provider       string  `json:"provider"`
	Unit           *string `json:"unit,omitempty"`
	HigherIsBetter bool    `json:"higher_is_better"`
}

// MetricValue is the current value of one metric for one player. At most one
// row per (uuid, metric); new observations overwrite, no history is kept.
type MetricValue struct {
	UUID  string  `json:"uuid"`
	Value float64 `json:"value"`
}

// MetricObservation is a single ingested metric reading, either recorded
// inline after a provider fetch or consumed from the observations topic.
type MetricObservation struct {
	PlayerUUID string  `json:"player_uuid"`
	MetricKey  string  `json:"metric_key"`
	Value      float64 `json:"value"`
}

// Histogram is the on-demand distribution of one metric around one player.
// Buckets holds bucketCount+1 edge values (or 2 when the value range
// collapses); Counts holds the per-bucket population.
type Histogram struct {
	MetricKey      string        `json:"metric_key"`
	Unit           *string       `json:"unit"`
	HigherIsBetter bool          `json:"higher_is_better"`
	PlayerValue    float64       `json:"player_value"`
	SampleSize     int           `json:"sample_size"`
	MinValue       float64       `json:"min_value"`
	MaxValue       float64       `json:"max_value"`
	Buckets        []float64     `json:"buckets"`
	Counts         []int         `json:"counts"`
	Percentile     float64       `json:"percentile"`
	PlayerRank     int           `json:"player_rank"`
	TopPlayers     []MetricValue `json:"top_players"`
}
