// Package config provides configuration structures for the mention index.
// It defines server, ranking and logging settings, their defaults, and YAML loading.
package config

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	internalErrors "github.com/gcbaptista/mention-index/internal/errors"
)

// ServerSettings configures the transports in front of the engine.
type ServerSettings struct {
	Port         string `yaml:"port" json:"port"`                     // HTTP port (serve command)
	MaxBodyBytes int64  `yaml:"max_body_bytes" json:"max_body_bytes"` // Upper bound for request bodies; load payloads can be large
	QueueSize    int    `yaml:"queue_size" json:"queue_size"`         // Buffered requests waiting for the engine goroutine
}

// RankingSettings contains the weights of every additive scoring signal.
//
// The absolute values are not meaningful on their own; only their relative size matters.
// FuzzyMaxBonus must stay below BasenamePrefixBonus so that a basename prefix match always
// outranks a candidate that only matches fuzzily or as a substring.
type RankingSettings struct {
	DefaultLimit          int     `yaml:"default_limit" json:"default_limit"`                     // Results returned when a query has no limit
	MaxLimit              int     `yaml:"max_limit" json:"max_limit"`                             // Upper bound for a requested limit
	BasenamePrefixBonus   float64 `yaml:"basename_prefix_bonus" json:"basename_prefix_bonus"`     // Basename starts with the query
	PathPrefixBonus       float64 `yaml:"path_prefix_bonus" json:"path_prefix_bonus"`             // Full path starts with the query
	SubstringBonus        float64 `yaml:"substring_bonus" json:"substring_bonus"`                 // Full path contains the query
	FuzzyMinQueryLength   int     `yaml:"fuzzy_min_query_length" json:"fuzzy_min_query_length"`   // Shortest query (in characters) that gets a fuzzy bonus
	FuzzyOffset           float64 `yaml:"fuzzy_offset" json:"fuzzy_offset"`                       // Added to a raw fuzzy score before clamping at zero
	FuzzyMaxBonus         float64 `yaml:"fuzzy_max_bonus" json:"fuzzy_max_bonus"`                 // Upper bound of the fuzzy bonus
	SegmentBonus          float64 `yaml:"segment_bonus" json:"segment_bonus"`                     // Per query segment matched in sequence
	DirectorySegmentBonus float64 `yaml:"directory_segment_bonus" json:"directory_segment_bonus"` // Directories matched by a path-like query
	FileBias              float64 `yaml:"file_bias" json:"file_bias"`                             // Files win ties for queries without a separator
	LengthPenalty         float64 `yaml:"length_penalty" json:"length_penalty"`                   // Subtracted per character of the full path
	QueryCacheSize        int     `yaml:"query_cache_size" json:"query_cache_size"`               // Cached query results between mutations (0 disables)
}

// LoggingSettings configures the process logger.
type LoggingSettings struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn or error
	Format string `yaml:"format" json:"format"` // text or json
}

// Settings contains all configuration options of the mention index.
type Settings struct {
	Server  ServerSettings  `yaml:"server" json:"server"`
	Ranking RankingSettings `yaml:"ranking" json:"ranking"`
	Logging LoggingSettings `yaml:"logging" json:"logging"`
}

const (
	defaultPort         = "8080"
	defaultMaxBodyBytes = 64 << 20
	defaultQueueSize    = 64
	defaultLimit        = 30
	defaultMaxLimit     = 1000
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Default returns the settings used when no configuration file is given.
func Default() Settings {
	return Settings{
		Server: ServerSettings{
			Port:         defaultPort,
			MaxBodyBytes: defaultMaxBodyBytes,
			QueueSize:    defaultQueueSize,
		},
		Ranking: DefaultRanking(),
		Logging: LoggingSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultRanking returns the default scoring weights.
func DefaultRanking() RankingSettings {
	return RankingSettings{
		DefaultLimit:          defaultLimit,
		MaxLimit:              defaultMaxLimit,
		BasenamePrefixBonus:   1200,
		PathPrefixBonus:       900,
		SubstringBonus:        500,
		FuzzyMinQueryLength:   3,
		FuzzyOffset:           100,
		FuzzyMaxBonus:         250,
		SegmentBonus:          150,
		DirectorySegmentBonus: 200,
		FileBias:              10,
		LengthPenalty:         0.5,
		QueryCacheSize:        256,
	}
}

// LoadFile reads YAML settings from path on top of the defaults.
// Keys absent from the file keep their default values, so a weight can be set to zero explicitly.
func LoadFile(path string) (Settings, error) {
	settings := Default()

	data, err := os.ReadFile(path) // #nosec G304 -- path is provided by the operator on the command line
	if err != nil {
		return settings, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	settings.ApplyDefaults()
	if conflicts := settings.Validate(); len(conflicts) > 0 {
		return settings, internalErrors.NewConfigError(path, conflicts)
	}
	return settings, nil
}

// ApplyDefaults fills values that cannot be meaningfully zero.
// Weights are left alone because zero disables a signal.
func (settings *Settings) ApplyDefaults() {
	if strings.TrimSpace(settings.Server.Port) == "" {
		settings.Server.Port = defaultPort
	}
	if settings.Server.MaxBodyBytes <= 0 {
		settings.Server.MaxBodyBytes = defaultMaxBodyBytes
	}
	if settings.Server.QueueSize <= 0 {
		settings.Server.QueueSize = defaultQueueSize
	}

	if settings.Ranking.DefaultLimit <= 0 {
		settings.Ranking.DefaultLimit = defaultLimit
	}
	if settings.Ranking.MaxLimit <= 0 {
		settings.Ranking.MaxLimit = defaultMaxLimit
	}

	if settings.Logging.Level == "" {
		settings.Logging.Level = "info"
	}
	if settings.Logging.Format == "" {
		settings.Logging.Format = "text"
	}
	settings.Logging.Level = strings.ToLower(settings.Logging.Level)
	settings.Logging.Format = strings.ToLower(settings.Logging.Format)
}

// Validate returns a list of conflicts. An empty list means the settings are usable.
func (settings *Settings) Validate() []string {
	var conflicts []string

	conflicts = append(conflicts, settings.Ranking.Validate()...)

	if !slices.Contains(validLogLevels, settings.Logging.Level) {
		conflicts = append(conflicts, "Invalid logging level '"+settings.Logging.Level+"' (must be one of "+strings.Join(validLogLevels, ", ")+")")
	}
	if !slices.Contains(validLogFormats, settings.Logging.Format) {
		conflicts = append(conflicts, "Invalid logging format '"+settings.Logging.Format+"' (must be one of "+strings.Join(validLogFormats, ", ")+")")
	}

	return conflicts
}

// Validate checks the ranking weights for values that would break the ordering guarantees.
func (ranking *RankingSettings) Validate() []string {
	var conflicts []string

	if ranking.DefaultLimit > ranking.MaxLimit {
		conflicts = append(conflicts, fmt.Sprintf("ranking.default_limit (%d) cannot exceed ranking.max_limit (%d)", ranking.DefaultLimit, ranking.MaxLimit))
	}
	if ranking.FuzzyMinQueryLength < 1 {
		conflicts = append(conflicts, "ranking.fuzzy_min_query_length must be at least 1")
	}
	if ranking.QueryCacheSize < 0 {
		conflicts = append(conflicts, "ranking.query_cache_size cannot be negative")
	}

	weights := map[string]float64{
		"basename_prefix_bonus":   ranking.BasenamePrefixBonus,
		"path_prefix_bonus":       ranking.PathPrefixBonus,
		"substring_bonus":         ranking.SubstringBonus,
		"fuzzy_max_bonus":         ranking.FuzzyMaxBonus,
		"segment_bonus":           ranking.SegmentBonus,
		"directory_segment_bonus": ranking.DirectorySegmentBonus,
		"file_bias":               ranking.FileBias,
		"length_penalty":          ranking.LengthPenalty,
	}
	for _, name := range sortedKeys(weights) {
		if weights[name] < 0 {
			conflicts = append(conflicts, "ranking."+name+" cannot be negative")
		}
	}

	if ranking.FuzzyMaxBonus >= ranking.BasenamePrefixBonus && ranking.BasenamePrefixBonus > 0 {
		conflicts = append(conflicts, "ranking.fuzzy_max_bonus must be lower than ranking.basename_prefix_bonus")
	}

	return conflicts
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
