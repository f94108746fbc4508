package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. OPENWORLD_PORT
const EnvPrefix = "OPENWORLD"

// Persistence drivers
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Settings holds the server's runtime configuration
type Settings struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ScenarioDir     string        `mapstructure:"scenarioDir"`
	SessionsDir     string        `mapstructure:"sessionsDir"`
	Persistence     string        `mapstructure:"persistence"`
	DSN             string        `mapstructure:"dsn"`
	LogLevel        string        `mapstructure:"logLevel"`
	SessionMaxAge   time.Duration `mapstructure:"sessionMaxAge"`
	CleanupEvery    time.Duration `mapstructure:"cleanupEvery"`
	DefaultScenario string        `mapstructure:"defaultScenario"`
	NgrokDomain     string        `mapstructure:"ngrokDomain"`
}

// Addr returns host:port
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "")
	v.SetDefault("port", 8080)
	v.SetDefault("scenarioDir", "scenarios")
	v.SetDefault("sessionsDir", "sessions")
	v.SetDefault("persistence", DriverFile)
	v.SetDefault("dsn", "")
	v.SetDefault("logLevel", "info")
	v.SetDefault("sessionMaxAge", "24h")
	v.SetDefault("cleanupEvery", "1h")
	v.SetDefault("ngrokDomain", "")
	v.SetDefault("defaultScenario", preferredDefault)
}

// LoadSettings reads settings from defaults, an optional settings file
// (JSON or YAML) and OPENWORLD_* environment variables, in increasing
// order of precedence. An empty file path skips the file.
func LoadSettings(file string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// camelCase keys map to OPENWORLD_SCENARIODIR style variables
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading settings file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the settings for values the server cannot start with
func (s *Settings) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	s.Persistence = strings.ToLower(strings.TrimSpace(s.Persistence))
	switch s.Persistence {
	case DriverFile, DriverSQLite:
	case DriverPostgres:
		if s.DSN == "" {
			return errors.New("postgres persistence requires a dsn")
		}
	default:
		return fmt.Errorf("unknown persistence driver %q", s.Persistence)
	}
	if s.SessionMaxAge < 0 || s.CleanupEvery < 0 {
		return errors.New("session durations must not be negative")
	}
	return nil
}
