package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort       = 2333
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "smarttraffic"
	defaultDBCharset  = "utf8mb4"
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
)

// StoreBackend selects which persistence backend serves the list store.
type StoreBackend string

const (
	StoreRedis StoreBackend = "redis"
	StoreMySQL StoreBackend = "mysql"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production"
	StoreBackend   StoreBackend          `yaml:"store_backend"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	RedisURL       string                `yaml:"redis_url"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	JWTSecret      string                `yaml:"jwt_secret"`
	AI             AIConfig              `yaml:"ai"`
	Economy        EconomyConfig         `yaml:"economy"`
	Campaign       CampaignConfig        `yaml:"campaign"`
}

type DatabaseRuntimeConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
}

// EconomyConfig tunes the rating ledger and reward scheduler.
type EconomyConfig struct {
	StartingCredits  int     `yaml:"starting_credits"`
	BaseCredits      int     `yaml:"base_credits"`
	BasePoints       int     `yaml:"base_points"`
	TopContributorN  int     `yaml:"top_contributor_n"`
	BoostMultiplier  float64 `yaml:"boost_multiplier"`
	RewardPeriodDays int     `yaml:"reward_period_days"`
}

// CampaignConfig tunes the agent loop.
type CampaignConfig struct {
	MaxTurns int `yaml:"max_turns"`
}

// AIConfig lists the configured content providers and per-purpose model
// assignments.
type AIConfig struct {
	Providers     []AIProvider       `yaml:"providers"      json:"providers"`
	CampaignModel *AIModelAssignment `yaml:"campaign_model" json:"campaign_model,omitempty"`
	AnalysisModel *AIModelAssignment `yaml:"analysis_model" json:"analysis_model,omitempty"`
	ChatModel     *AIModelAssignment `yaml:"chat_model"     json:"chat_model,omitempty"`
}

type AIModelAssignment struct {
	ProviderID string `yaml:"provider_id" json:"provider_id"`
	Model      string `yaml:"model"       json:"model"`
}

type AIProvider struct {
	ID           string `yaml:"id"            json:"id"`
	Name         string `yaml:"name"          json:"name"`
	Type         string `yaml:"type"          json:"type"` // OpenAI | OpenAI-Compatible | Anthropic
	APIKey       string `yaml:"api_key"       json:"api_key"`
	Endpoint     string `yaml:"endpoint"      json:"endpoint,omitempty"`
	DefaultModel string `yaml:"default_model" json:"default_model"`
	Enabled      bool   `yaml:"enabled"       json:"enabled"`
}

// Load reads YAML config from configPath and fills defaults.
// A missing file is not an error: defaults apply.
func Load(configPath string) (*AppConfig, error) {
	cfg := defaultAppConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.normalize()
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:         defaultPort,
		Env:          defaultEnv,
		StoreBackend: StoreRedis,
		Database: DatabaseRuntimeConfig{
			Host:     defaultDBHost,
			Port:     defaultDBPort,
			User:     defaultDBUser,
			Password: defaultDBPassword,
			Name:     defaultDBName,
			Charset:  defaultDBCharset,
		},
		RedisURL: fmt.Sprintf("redis://%s:%d/0", defaultRedisHost, defaultRedisPort),
		Economy: EconomyConfig{
			StartingCredits:  50,
			BaseCredits:      5,
			BasePoints:       10,
			TopContributorN:  10,
			BoostMultiplier:  1.5,
			RewardPeriodDays: 7,
		},
		Campaign: CampaignConfig{MaxTurns: 12},
	}
}

func (c *AppConfig) normalize() {
	if c.Port <= 0 {
		c.Port = defaultPort
	}
	if strings.TrimSpace(c.Env) == "" {
		c.Env = defaultEnv
	}
	if c.StoreBackend == "" {
		c.StoreBackend = StoreRedis
	}
	if c.Economy.StartingCredits <= 0 {
		c.Economy.StartingCredits = 50
	}
	if c.Economy.BaseCredits <= 0 {
		c.Economy.BaseCredits = 5
	}
	if c.Economy.BasePoints <= 0 {
		c.Economy.BasePoints = 10
	}
	if c.Economy.TopContributorN <= 0 {
		c.Economy.TopContributorN = 10
	}
	if c.Economy.BoostMultiplier <= 1 {
		c.Economy.BoostMultiplier = 1.5
	}
	if c.Economy.RewardPeriodDays <= 0 {
		c.Economy.RewardPeriodDays = 7
	}
	if c.Campaign.MaxTurns <= 0 {
		c.Campaign.MaxTurns = 12
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env != "production" }

// DSNValue builds the MySQL DSN from parts unless an explicit DSN is set.
func (c DatabaseRuntimeConfig) DSNValue() string {
	if strings.TrimSpace(c.DSN) != "" {
		return c.DSN
	}
	host, port := c.Host, c.Port
	if host == "" {
		host = defaultDBHost
	}
	if port <= 0 {
		port = defaultDBPort
	}
	user := c.User
	if user == "" {
		user = defaultDBUser
	}
	name := c.Name
	if name == "" {
		name = defaultDBName
	}
	charset := c.Charset
	if charset == "" {
		charset = defaultDBCharset
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		user, c.Password, host, port, name, charset)
}
