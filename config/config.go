package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the configuration implementation.
type Config struct {
	AppName  string
	RunMode  string
	Host     string
	Port     int
	Observes *Observes
	Logger   *Logger
	Data     *Data
	Monitor  *Monitor
	Viper    *viper.Viper

	mu sync.Mutex
}

// LoadConfig loads the configuration from the file.
// An empty path searches the default locations for config.yaml.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		ex, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		v.SetConfigName("config")
		v.AddConfigPath("/etc/pulse")
		v.AddConfigPath("$HOME/.pulse")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Dir(ex))
	}

	v.SetEnvPrefix("pulse")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return fromViper(v)
}

// fromViper builds the configuration from an already loaded viper instance
func fromViper(v *viper.Viper) (*Config, error) {
	mon, err := getMonitorConfig(v)
	if err != nil {
		return nil, err
	}

	return &Config{
		AppName:  getStringOrDefault(v, "app_name", "pulse"),
		RunMode:  getStringOrDefault(v, "run_mode", "release"),
		Host:     getStringOrDefault(v, "server.host", "0.0.0.0"),
		Port:     getIntOrDefault(v, "server.port", 8080),
		Observes: getObservesConfig(v),
		Logger:   getLoggerConfig(v),
		Data:     getDataConfig(v),
		Monitor:  mon,
		Viper:    v,
	}, nil
}

// Addr returns the server listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Watch watches the configuration file and calls callback with the reloaded
// configuration whenever it changes. A file that fails to parse is reported
// through onError and the previous configuration stays in effect.
func (c *Config) Watch(callback func(*Config), onError func(error)) {
	c.Viper.OnConfigChange(func(e fsnotify.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()

		next, err := fromViper(c.Viper)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("failed to reload config %s: %w", e.Name, err))
			}
			return
		}
		callback(next)
	})
	c.Viper.WatchConfig()
}
