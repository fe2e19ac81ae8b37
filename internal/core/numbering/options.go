package numbering

// Strategy selects how the next sequence value is obtained.
type Strategy int

const (
	// StrategyCounter reserves the next value with a single atomic
	// UPSERT against a per-(type, period) counter row. Race-free and
	// the recommended default.
	StrategyCounter Strategy = iota

	// StrategyScan derives the next value by scanning for the highest
	// existing identifier and incrementing its numeric segment. This is
	// how the legacy system worked; two concurrent creators can compute
	// the same number, so callers must retry on insert conflict.
	StrategyScan
)

// Options configures a Generator implementation.
type Options struct {
	// Strategy to use for obtaining sequence values.
	Strategy Strategy

	// MaxAttempts bounds generate-and-insert retries under StrategyScan.
	// Default is 5.
	MaxAttempts int
}

// DefaultOptions returns the counter strategy with standard retry bounds.
func DefaultOptions() Options {
	return Options{
		Strategy:    StrategyCounter,
		MaxAttempts: 5,
	}
}
