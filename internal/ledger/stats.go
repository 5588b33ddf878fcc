package ledger

import "math"

// SessionStats is the aggregate for one session.
type SessionStats struct {
	SessionID  string  `json:"session_id"`
	Commands   int64   `json:"commands"`
	Original   int64   `json:"original"`
	Compressed int64   `json:"compressed"`
	Saved      int64   `json:"saved"`
	Ratio      float64 `json:"ratio"`
}

// LifetimeStats sums every retained session.
type LifetimeStats struct {
	Sessions   int64   `json:"sessions"`
	Commands   int64   `json:"commands"`
	Original   int64   `json:"original"`
	Compressed int64   `json:"compressed"`
	Saved      int64   `json:"saved"`
	Ratio      float64 `json:"ratio"`
}

// ProcessorStats ranks one processor by bytes saved.
type ProcessorStats struct {
	Processor string `json:"processor"`
	Count     int64  `json:"count"`
	Saved     int64  `json:"saved"`
}

// savedRatio returns saved/original as a percentage rounded to one decimal,
// or 0 when nothing was recorded.
func savedRatio(saved, original int64) float64 {
	if original <= 0 {
		return 0
	}
	return math.Round(float64(saved)/float64(original)*1000) / 10
}
