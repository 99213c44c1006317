package config

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Detector DetectorConfig `mapstructure:"detector"`
	Matcher  MatcherConfig  `mapstructure:"matcher"`
	Storage  StorageConfig  `mapstructure:"storage"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DBConfig holds settings for the persistent store.
type DBConfig struct {
	File string `mapstructure:"file"` // SQLite database file path
}

// DetectorConfig holds settings for the external detection/embedding service.
type DetectorConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Dimension      int    `mapstructure:"dimension"` // embedding length D
}

// MatcherConfig holds matching settings.
type MatcherConfig struct {
	DefaultThreshold float64 `mapstructure:"default_threshold"`
}

// StorageConfig holds dual-mode storage settings.
type StorageConfig struct {
	HealthIntervalSeconds    int `mapstructure:"health_interval_seconds"`
	ReconnectIntervalSeconds int `mapstructure:"reconnect_interval_seconds"`
	OpTimeoutSeconds         int `mapstructure:"op_timeout_seconds"`
}

// MQTTConfig holds settings for the optional recognition-event publisher.
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
}

// Load reads configuration from an optional YAML file, environment variables
// and defaults, in that order of precedence (env highest).
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Infof("Config loaded from %s", configPath)
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("FACEMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("db.file", "data/facematch.db")

	v.SetDefault("detector.enabled", true)
	v.SetDefault("detector.url", "http://localhost:18081")
	v.SetDefault("detector.timeout_seconds", 10)
	// FaceNet-style embeddings
	v.SetDefault("detector.dimension", 512)

	v.SetDefault("matcher.default_threshold", 0.6)

	v.SetDefault("storage.health_interval_seconds", 30)
	v.SetDefault("storage.reconnect_interval_seconds", 30)
	v.SetDefault("storage.op_timeout_seconds", 5)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "facematch")
	v.SetDefault("mqtt.topic", "facematch/recognitions")
}
