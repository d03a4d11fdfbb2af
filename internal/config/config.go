// Package config loads the process configuration for the Beatify game
// core. It is read once at boot and passed explicitly through
// Bootstrap — never stashed behind a package-level singleton (Design
// Note, spec.md §9).
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the full set of tunables SPEC_FULL.md §4.11 names. Values
// come from environment variables (prefixed BEATIFY_) with an optional
// YAML file overlay; every field has a default matching spec.md's named
// constants so a missing file or env var never prevents boot.
type Config struct {
	// Directories
	ConfigDir   string `mapstructure:"config_dir"`
	PlaylistDir string `mapstructure:"playlist_dir"`

	// HTTP
	ListenAddr string `mapstructure:"listen_addr"`

	// Game rules
	MaxPlayers       int           `mapstructure:"max_players"`
	MinPlayers       int           `mapstructure:"min_players"`
	MinNameLength    int           `mapstructure:"min_name_length"`
	MaxNameLength    int           `mapstructure:"max_name_length"`
	YearMin          int           `mapstructure:"year_min"`
	YearMax          int           `mapstructure:"year_max"`
	RoundDuration    time.Duration `mapstructure:"round_duration"`
	DisconnectGrace  time.Duration `mapstructure:"disconnect_grace_period"`
	IntroRoundChance float64       `mapstructure:"intro_round_chance"`

	Difficulty             string   `mapstructure:"difficulty"`
	ArtistChallengeEnabled bool     `mapstructure:"artist_challenge_enabled"`
	MovieChallengeEnabled  bool     `mapstructure:"movie_challenge_enabled"`
	PlaylistNames          []string `mapstructure:"playlist_names"`

	// Media player (spec.md §4.4)
	MediaPlayerEntityID string `mapstructure:"media_player_entity_id"`
	MediaPlayerPlatform string `mapstructure:"media_player_platform"`
	HomeAssistantURL    string `mapstructure:"home_assistant_url"`
	HomeAssistantToken  string `mapstructure:"home_assistant_token"`

	// Persistence
	AnalyticsPruneInterval   int `mapstructure:"analytics_prune_interval"`
	AnalyticsRetentionDays   int `mapstructure:"analytics_retention_days"`
	AnalyticsMaxDetailedRows int `mapstructure:"analytics_max_detailed_rows"`
}

// Default returns the baseline configuration matching spec.md's named
// constants (MAX_PLAYERS=20, MIN_PLAYERS=2, DEFAULT_ROUND_DURATION=30s,
// LOBBY_DISCONNECT_GRACE_PERIOD=60s, MAX_NAME_LENGTH=20,
// MIN_NAME_LENGTH=1, YEAR_MIN=1900, YEAR_MAX=2030).
func Default() Config {
	return Config{
		ConfigDir:                "./data",
		PlaylistDir:              "./data/beatify/playlists",
		ListenAddr:                ":8099",
		MaxPlayers:               20,
		MinPlayers:               2,
		MinNameLength:            1,
		MaxNameLength:            20,
		YearMin:                  1900,
		YearMax:                  2030,
		RoundDuration:            30 * time.Second,
		DisconnectGrace:          60 * time.Second,
		IntroRoundChance:         0.15,
		Difficulty:               "normal",
		ArtistChallengeEnabled:   true,
		MovieChallengeEnabled:    true,
		PlaylistNames:            nil,
		MediaPlayerEntityID:      "media_player.beatify",
		MediaPlayerPlatform:      "music_assistant",
		HomeAssistantURL:         "http://homeassistant.local:8123",
		AnalyticsPruneInterval:   10,
		AnalyticsRetentionDays:   90,
		AnalyticsMaxDetailedRows: 1000,
	}
}

// Load reads configuration from environment variables (BEATIFY_*) and,
// if present, a beatify.yaml file in cwd or /etc/beatify. A missing
// file is not an error: defaults and environment values stand. A file
// that exists but cannot be read or parsed is returned as an error.
func Load() (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("beatify")
	v.AutomaticEnv()
	v.SetConfigName("beatify")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/beatify")

	v.SetDefault("config_dir", cfg.ConfigDir)
	v.SetDefault("playlist_dir", cfg.PlaylistDir)
	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("max_players", cfg.MaxPlayers)
	v.SetDefault("min_players", cfg.MinPlayers)
	v.SetDefault("min_name_length", cfg.MinNameLength)
	v.SetDefault("max_name_length", cfg.MaxNameLength)
	v.SetDefault("year_min", cfg.YearMin)
	v.SetDefault("year_max", cfg.YearMax)
	v.SetDefault("round_duration", cfg.RoundDuration)
	v.SetDefault("disconnect_grace_period", cfg.DisconnectGrace)
	v.SetDefault("intro_round_chance", cfg.IntroRoundChance)
	v.SetDefault("difficulty", cfg.Difficulty)
	v.SetDefault("artist_challenge_enabled", cfg.ArtistChallengeEnabled)
	v.SetDefault("movie_challenge_enabled", cfg.MovieChallengeEnabled)
	v.SetDefault("playlist_names", cfg.PlaylistNames)
	v.SetDefault("media_player_entity_id", cfg.MediaPlayerEntityID)
	v.SetDefault("media_player_platform", cfg.MediaPlayerPlatform)
	v.SetDefault("home_assistant_url", cfg.HomeAssistantURL)
	v.SetDefault("home_assistant_token", cfg.HomeAssistantToken)
	v.SetDefault("analytics_prune_interval", cfg.AnalyticsPruneInterval)
	v.SetDefault("analytics_retention_days", cfg.AnalyticsRetentionDays)
	v.SetDefault("analytics_max_detailed_rows", cfg.AnalyticsMaxDetailedRows)

	readErr := v.ReadInConfig()

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	if readErr != nil {
		if _, notFound := readErr.(viper.ConfigFileNotFoundError); notFound {
			return cfg, nil
		}
		return cfg, readErr
	}

	return cfg, nil
}
