package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalErrors "github.com/gcbaptista/mention-index/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mention.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	settings := Default()
	assert.Empty(t, settings.Validate())
	assert.Equal(t, 30, settings.Ranking.DefaultLimit)
	assert.Less(t, settings.Ranking.FuzzyMaxBonus, settings.Ranking.BasenamePrefixBonus)
	assert.Greater(t, settings.Ranking.BasenamePrefixBonus, settings.Ranking.PathPrefixBonus)
	assert.Greater(t, settings.Ranking.PathPrefixBonus, settings.Ranking.SubstringBonus)
}

func TestApplyDefaults(t *testing.T) {
	settings := Settings{}
	settings.ApplyDefaults()

	assert.Equal(t, "8080", settings.Server.Port)
	assert.Equal(t, int64(64<<20), settings.Server.MaxBodyBytes)
	assert.Equal(t, 64, settings.Server.QueueSize)
	assert.Equal(t, 30, settings.Ranking.DefaultLimit)
	assert.Equal(t, 1000, settings.Ranking.MaxLimit)
	assert.Equal(t, "info", settings.Logging.Level)
	assert.Equal(t, "text", settings.Logging.Format)

	// Weights are not defaulted: zero disables a signal
	assert.Zero(t, settings.Ranking.FileBias)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name           string
		mutate         func(s *Settings)
		expectedErrors int
	}{
		{
			name:           "defaults",
			mutate:         func(s *Settings) {},
			expectedErrors: 0,
		},
		{
			name: "default limit above max limit",
			mutate: func(s *Settings) {
				s.Ranking.DefaultLimit = 50
				s.Ranking.MaxLimit = 10
			},
			expectedErrors: 1,
		},
		{
			name: "negative weights",
			mutate: func(s *Settings) {
				s.Ranking.SubstringBonus = -1
				s.Ranking.LengthPenalty = -0.5
			},
			expectedErrors: 2,
		},
		{
			name: "fuzzy bonus can outrank a basename prefix",
			mutate: func(s *Settings) {
				s.Ranking.FuzzyMaxBonus = 2000
			},
			expectedErrors: 1,
		},
		{
			name: "unknown log level and format",
			mutate: func(s *Settings) {
				s.Logging.Level = "verbose"
				s.Logging.Format = "xml"
			},
			expectedErrors: 2,
		},
		{
			name: "negative cache size and zero fuzzy length",
			mutate: func(s *Settings) {
				s.Ranking.QueryCacheSize = -1
				s.Ranking.FuzzyMinQueryLength = 0
			},
			expectedErrors: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := Default()
			tt.mutate(&settings)
			conflicts := settings.Validate()
			assert.Len(t, conflicts, tt.expectedErrors, "conflicts: %v", conflicts)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
ranking:
  default_limit: 50
  file_bias: 0
logging:
  level: DEBUG
`)

	settings, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", settings.Server.Port)
	assert.Equal(t, 50, settings.Ranking.DefaultLimit)
	assert.Zero(t, settings.Ranking.FileBias, "explicit zero keeps the signal disabled")
	assert.Equal(t, 1200.0, settings.Ranking.BasenamePrefixBonus, "absent keys keep defaults")
	assert.Equal(t, "debug", settings.Logging.Level)
	assert.Equal(t, 64, settings.Server.QueueSize)
}

func TestLoadFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadFile(writeConfig(t, "ranking: [unterminated"))
		require.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := LoadFile(writeConfig(t, "ranking:\n  substring_bonus: -5\n"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, internalErrors.ErrInvalidConfig))
	})
}
