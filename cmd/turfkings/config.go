package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/models"
)

// Config is the turfkings server configuration loaded from YAML plus
// environment overrides.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Store struct {
		// Backend selects the shared document store: "memory" keeps
		// everything in-process, "postgres" mirrors through Postgres
		// with NATS change notifications.
		Backend     string `yaml:"backend"`
		DatabaseURL string `yaml:"database_url"`
		NATSURL     string `yaml:"nats_url"`
	} `yaml:"store"`

	Match struct {
		DurationMinutes int    `yaml:"duration_minutes"`
		DocumentKey     string `yaml:"document_key"`
	} `yaml:"match"`

	MatchLog struct {
		Path string `yaml:"path"`
	} `yaml:"match_log"`

	League struct {
		Teams []struct {
			ID      string   `yaml:"id"`
			Label   string   `yaml:"label"`
			Captain string   `yaml:"captain"`
			Players []string `yaml:"players"`
		} `yaml:"teams"`
		Pairing struct {
			TeamA   string `yaml:"team_a"`
			TeamB   string `yaml:"team_b"`
			Standby string `yaml:"standby"`
		} `yaml:"pairing"`
	} `yaml:"league"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = getEnv("PORT", "8080")
	}
	if config.Store.Backend == "" {
		config.Store.Backend = getEnv("STORE_BACKEND", "memory")
	}
	if config.Store.DatabaseURL == "" {
		config.Store.DatabaseURL = getEnv("DATABASE_URL", "")
	}
	if config.Store.NATSURL == "" {
		config.Store.NATSURL = getEnv("NATS_URL", "nats://localhost:4222")
	}
	if config.Match.DurationMinutes == 0 {
		config.Match.DurationMinutes = getEnvAsInt("MATCH_DURATION_MINUTES", 10)
	}
	if config.Match.DocumentKey == "" {
		config.Match.DocumentKey = "live_match/current"
	}
	if config.MatchLog.Path == "" {
		config.MatchLog.Path = getEnv("MATCH_LOG_PATH", "turfkings.db")
	}
}

func (c *Config) matchDuration() time.Duration {
	return time.Duration(c.Match.DurationMinutes) * time.Minute
}

func (c *Config) teams() []models.Team {
	teams := make([]models.Team, len(c.League.Teams))
	for i, t := range c.League.Teams {
		teams[i] = models.Team{
			ID:      models.TeamID(t.ID),
			Label:   t.Label,
			Captain: t.Captain,
			Players: t.Players,
		}
	}
	return teams
}

func (c *Config) pairing() models.Pairing {
	return models.Pairing{
		TeamAID:   models.TeamID(c.League.Pairing.TeamA),
		TeamBID:   models.TeamID(c.League.Pairing.TeamB),
		StandbyID: models.TeamID(c.League.Pairing.Standby),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
