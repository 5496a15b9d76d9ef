package scan

// Config holds scan configuration
type Config struct {
	MetricsFile string   // Prometheus textfile written after the run, if set
	Extensions  []string // File extensions picked up in directory mode; empty means all readable
}

// DefaultConfig returns the default scan configuration
func DefaultConfig() Config {
	return Config{
		MetricsFile: "",
		Extensions:  nil,
	}
}
