package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings("")
	require.NoError(t, err)

	assert.Equal(t, 8080, s.Port)
	assert.Equal(t, ":8080", s.Addr())
	assert.Equal(t, "scenarios", s.ScenarioDir)
	assert.Equal(t, "sessions", s.SessionsDir)
	assert.Equal(t, DriverFile, s.Persistence)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, 24*time.Hour, s.SessionMaxAge)
	assert.Equal(t, time.Hour, s.CleanupEvery)
	assert.Equal(t, "demo", s.DefaultScenario)
}

func TestLoadSettings_File(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "openworld.json")
		cfg := `{"port": 9090, "persistence": "SQLite", "logLevel": "debug", "sessionMaxAge": "90m"}`
		require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))

		s, err := LoadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, 9090, s.Port)
		assert.Equal(t, DriverSQLite, s.Persistence)
		assert.Equal(t, "debug", s.LogLevel)
		assert.Equal(t, 90*time.Minute, s.SessionMaxAge)
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "openworld.yaml")
		cfg := "host: 127.0.0.1\nport: 7000\nscenarioDir: /srv/scenarios\n"
		require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))

		s, err := LoadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:7000", s.Addr())
		assert.Equal(t, "/srv/scenarios", s.ScenarioDir)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSettings(filepath.Join(dir, "nope.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading settings file")
	})
}

func TestLoadSettings_Environment(t *testing.T) {
	t.Setenv("OPENWORLD_PORT", "9191")
	t.Setenv("OPENWORLD_PERSISTENCE", "postgres")
	t.Setenv("OPENWORLD_DSN", "host=localhost user=postgres dbname=openworld")

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, 9191, s.Port)
	assert.Equal(t, DriverPostgres, s.Persistence)
	assert.Equal(t, "host=localhost user=postgres dbname=openworld", s.DSN)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr bool
	}{
		{name: "valid", mutate: func(s *Settings) {}},
		{name: "port zero", mutate: func(s *Settings) { s.Port = 0 }, wantErr: true},
		{name: "port too high", mutate: func(s *Settings) { s.Port = 70000 }, wantErr: true},
		{name: "unknown driver", mutate: func(s *Settings) { s.Persistence = "redis" }, wantErr: true},
		{name: "postgres without dsn", mutate: func(s *Settings) { s.Persistence = DriverPostgres }, wantErr: true},
		{name: "postgres with dsn", mutate: func(s *Settings) {
			s.Persistence = DriverPostgres
			s.DSN = "host=db"
		}},
		{name: "negative max age", mutate: func(s *Settings) { s.SessionMaxAge = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Settings{Port: 8080, Persistence: DriverFile}
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
