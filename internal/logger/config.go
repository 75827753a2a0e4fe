// internal/logger/config.go
package logger

// Config controls log output, rotation and verbosity.
type Config struct {
	LogFile     string
	MaxSize     int // megabytes
	MaxBackups  int
	MaxAge      int // days
	Compress    bool
	Development bool
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() *Config {
	return &Config{
		LogFile:    "logs/btc1.log",
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
	}
}
