package config

import (
	"github.com/spf13/viper"
)

// Config configuration struct
type Config struct {
	Level      int     `json:"level" yaml:"level"`
	Format     string  `json:"format" yaml:"format"`
	Output     string  `json:"output" yaml:"output"`
	OutputFile string  `json:"output_file" yaml:"output_file"`
	Sentry     *Sentry `json:"sentry" yaml:"sentry"`
}

// Sentry holds the error reporting hook settings
type Sentry struct {
	Endpoint    string `json:"endpoint" yaml:"endpoint"`
	Environment string `json:"environment" yaml:"environment"`
	Release     string `json:"release" yaml:"release"`
}

// GetConfig returns the logger configuration
func GetConfig(v *viper.Viper) *Config {
	if !v.IsSet("logger") {
		return DefaultConfig()
	}

	level := 4 // logrus.InfoLevel
	if v.IsSet("logger.level") {
		level = v.GetInt("logger.level")
	}

	return &Config{
		Level:      level,
		Format:     v.GetString("logger.format"),
		Output:     v.GetString("logger.output"),
		OutputFile: v.GetString("logger.output_file"),
		Sentry: &Sentry{
			Endpoint:    v.GetString("observes.sentry.endpoint"),
			Environment: v.GetString("observes.sentry.environment"),
			Release:     v.GetString("observes.sentry.release"),
		},
	}
}

// DefaultConfig returns info level text logging to stdout
func DefaultConfig() *Config {
	return &Config{
		Level:  4,
		Format: "text",
		Output: "stdout",
	}
}
