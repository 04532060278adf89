package recurrence

// EngineConfig holds configuration options for recurrence expansion
type EngineConfig struct {
	// MaxIterations caps how many rule values a single generator pulls between
	// resets. Reaching it ends expansion early; it is not an error.
	MaxIterations int
}

const defaultMaxIterations = 5000

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	MaxIterations: defaultMaxIterations,
}

// HighPerformanceConfig trades far-future coverage for bounded expansion cost
var HighPerformanceConfig = EngineConfig{
	MaxIterations: 1000,
}

// LowMemoryConfig keeps per-record caches small
var LowMemoryConfig = EngineConfig{
	MaxIterations: 250,
}

// Normalize fills zero values with defaults.
func (c EngineConfig) Normalize() EngineConfig {
	if c.MaxIterations <= 0 {
		c.MaxIterations = defaultMaxIterations
	}
	return c
}
