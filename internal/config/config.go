// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cjordan223/web-scrape-ai/internal/filter"
	"github.com/cjordan223/web-scrape-ai/internal/scrape"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
	Filter  FilterConfig  `mapstructure:"filter"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls access to Postgres. An empty DSN selects the in-memory
// store, which keeps nothing across process restarts.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// RedisConfig controls the optional seen-URL cache.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// FilterConfig governs the filtering and scoring pipeline.
type FilterConfig struct {
	TitleKeywords         []string `mapstructure:"title_keywords"`
	TitleRoleWords        []string `mapstructure:"title_role_words"`
	SeniorityExclude      []string `mapstructure:"seniority_exclude"`
	EarlyCareerExclude    bool     `mapstructure:"early_career_exclude"`
	MaxExperienceYears    int      `mapstructure:"max_experience_years"`
	ContentBlocklist      []string `mapstructure:"content_blocklist"`
	URLDomainBlocklist    []string `mapstructure:"url_domain_blocklist"`
	RequireRemote         bool     `mapstructure:"require_remote"`
	RequireExplicitRemote bool     `mapstructure:"require_explicit_remote"`
	HybridCountsAsRemote  bool     `mapstructure:"hybrid_counts_as_remote"`
	MinSalaryK            int      `mapstructure:"min_salary_k"`
	MinJDChars            int      `mapstructure:"min_jd_chars"`
	AcceptThreshold       int      `mapstructure:"score_accept_threshold"`
	RejectThreshold       int      `mapstructure:"score_reject_threshold"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBSCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("logging.development", true)

	v.SetDefault("filter.title_keywords", []string{
		"security", "cyber", "appsec", "devsecops", "detection",
		"vulnerability", "soc", "infosec", "secops", "grc",
	})
	v.SetDefault("filter.title_role_words", []string{
		"engineer", "analyst", "architect", "developer", "specialist",
		"consultant", "administrator", "operator", "responder",
		"researcher", "pentester", "tester",
	})
	v.SetDefault("filter.seniority_exclude", []string{})
	v.SetDefault("filter.early_career_exclude", true)
	v.SetDefault("filter.max_experience_years", 6)
	v.SetDefault("filter.content_blocklist", []string{
		"clearance", "ts/sci", "polygraph", "top secret",
		"secret clearance", "citizenship required", "us citizen only",
	})
	v.SetDefault("filter.url_domain_blocklist", []string{
		"dictionary.com", "wikipedia.org", "reddit.com", "quora.com",
		"glassdoor.com", "coursera.org", "udemy.com",
	})
	v.SetDefault("filter.require_remote", false)
	v.SetDefault("filter.require_explicit_remote", false)
	v.SetDefault("filter.hybrid_counts_as_remote", true)
	v.SetDefault("filter.min_salary_k", 0)
	v.SetDefault("filter.min_jd_chars", 400)
	v.SetDefault("filter.score_accept_threshold", 3)
	v.SetDefault("filter.score_reject_threshold", 0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("%w: server.port must be > 0", scrape.ErrConfigValidation)
	}
	if c.DB.MaxConns <= 0 {
		return fmt.Errorf("%w: db.max_conns must be > 0", scrape.ErrConfigValidation)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr must be set when redis is enabled", scrape.ErrConfigValidation)
	}
	return c.FilterConfig().Validate()
}

// FilterConfig converts the loaded knobs into the pipeline's configuration.
func (c Config) FilterConfig() filter.Config {
	return filter.Config{
		TitleKeywords:         c.Filter.TitleKeywords,
		TitleRoleWords:        c.Filter.TitleRoleWords,
		SeniorityExclude:      c.Filter.SeniorityExclude,
		EarlyCareerExclude:    c.Filter.EarlyCareerExclude,
		MaxExperienceYears:    c.Filter.MaxExperienceYears,
		ContentBlocklist:      c.Filter.ContentBlocklist,
		URLDomainBlocklist:    c.Filter.URLDomainBlocklist,
		RequireRemote:         c.Filter.RequireRemote,
		RequireExplicitRemote: c.Filter.RequireExplicitRemote,
		HybridCountsAsRemote:  c.Filter.HybridCountsAsRemote,
		MinSalaryK:            c.Filter.MinSalaryK,
		MinJDChars:            c.Filter.MinJDChars,
		AcceptThreshold:       c.Filter.AcceptThreshold,
		RejectThreshold:       c.Filter.RejectThreshold,
	}
}
