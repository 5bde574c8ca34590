package config

import "fmt"

// Log level constants
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log format constants
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
	LogFormatText    = "text"
)

type LogConfig struct {
	Level   string           `yaml:"level"`
	Console ConsoleLogConfig `yaml:"console"`
	File    FileLogConfig    `yaml:"file"`
}

type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"`
	Level   string `yaml:"level,omitempty"`
}

type FileLogConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Format   string         `yaml:"format"`
	Level    string         `yaml:"level,omitempty"`
	Rotation RotationConfig `yaml:"rotation"`
}

type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`
	MaxAge     int  `yaml:"max_age"`
	MaxBackups int  `yaml:"max_backups"`
	Compress   bool `yaml:"compress"`
}

func (l *LogConfig) validate() error {
	if l.Level == "" {
		l.Level = LogLevelInfo
	}
	for _, level := range []string{l.Level, l.Console.Level, l.File.Level} {
		switch level {
		case "", LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		default:
			return fmt.Errorf("invalid log level %q", level)
		}
	}

	// Nothing configured means console output.
	if !l.Console.Enabled && !l.File.Enabled {
		l.Console.Enabled = true
	}
	if l.Console.Format == "" {
		l.Console.Format = LogFormatConsole
	}
	if l.File.Format == "" {
		l.File.Format = LogFormatText
	}
	if l.File.Enabled && l.File.Path == "" {
		return fmt.Errorf("log.file.path must be specified when file logging is enabled")
	}
	return nil
}
