package config

import (
	"fmt"
	"strings"
	"time"

	pkgconfig "habitweb/pkg/config"
	"habitweb/pkg/ratelimit"
)

// UIConfig holds rendering switches and the colour palette.
type UIConfig struct {
	MountPath                string        `yaml:"mount_path"`
	PageTitle                string        `yaml:"page_title"`
	Demo                     bool          `yaml:"demo"`
	UmamiWebsiteID           string        `yaml:"umami_website_id"`
	IndexDays                int           `yaml:"index_days"`
	IndexShowHabitCount      bool          `yaml:"index_show_habit_count"`
	IndexShowPriority        bool          `yaml:"index_show_priority"`
	EnableHabitNotes         bool          `yaml:"enable_habit_notes"`
	EnableLetterFilter       bool          `yaml:"enable_letter_filter"`
	EnableDesktopAlignCenter bool          `yaml:"enable_desktop_align_center"`
	EnableIOSStandalone      bool          `yaml:"enable_ios_standalone"`
	HoldDelay                time.Duration `yaml:"hold_delay"`
	CalendarWeeks            int           `yaml:"calendar_weeks"`

	ColorSkipped            string `yaml:"color_skipped"`
	ColorCompleted          string `yaml:"color_completed"`
	ColorIncomplete         string `yaml:"color_incomplete"`
	ColorLastWeekIncomplete string `yaml:"color_last_week_incomplete"`
	ColorDayNumber          string `yaml:"color_day_number"`
}

// RateLimitConfig holds the per-user tick windows.
type RateLimitConfig struct {
	Tick []ratelimit.Rule `yaml:"tick"`
}

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Debug     bool                   `yaml:"debug"`
	Storage   string                 `yaml:"storage"`
	Server    pkgconfig.ServerConfig `yaml:"server"`
	DB        pkgconfig.DBConfig     `yaml:"db"`
	Redis     pkgconfig.RedisConfig  `yaml:"redis"`
	MQ        pkgconfig.MQConfig     `yaml:"mq"`
	JWT       pkgconfig.JWTConfig    `yaml:"jwt"`
	UI        UIConfig               `yaml:"ui"`
	RateLimit RateLimitConfig        `yaml:"ratelimit"`
}

// Default returns the built-in settings every loaded file is layered onto.
func Default() Config {
	return Config{
		Storage: StoragePostgres,
		Server:  pkgconfig.ServerConfig{Port: ":8080"},
		DB: pkgconfig.DBConfig{
			Host: "localhost",
			Port: 5432,
			User: "postgres",
			Name: "habits",
		},
		JWT: pkgconfig.JWTConfig{TTL: "720h"},
		UI: UIConfig{
			MountPath:               "/gui",
			PageTitle:               "Beaver Habits",
			IndexDays:               7,
			IndexShowHabitCount:     false,
			EnableHabitNotes:        true,
			EnableLetterFilter:      true,
			HoldDelay:               200 * time.Millisecond,
			CalendarWeeks:           5,
			ColorSkipped:            "#969696",
			ColorCompleted:          "#7bc96f",
			ColorIncomplete:         "#ffffff",
			ColorLastWeekIncomplete: "#fb4934",
			ColorDayNumber:          "rgb(110,110,110)",
		},
		RateLimit: RateLimitConfig{
			Tick: []ratelimit.Rule{
				{Limit: 10, Window: time.Second},
				{Limit: 30, Window: 30 * time.Second},
			},
		},
	}
}

// Load reads <dir>/base.yaml and <dir>/<env>.yaml over the defaults, then applies env overrides.
func Load(env, dir string) (*Config, error) {
	merged, err := pkgconfig.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := pkgconfig.Decode(merged, &cfg); err != nil {
		return nil, err
	}

	overrideFromEnv(&cfg)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TokenTTL parses jwt.ttl, defaulting to 30 days.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWT.TTL)
	if err != nil || d <= 0 {
		return 30 * 24 * time.Hour
	}
	return d
}

func (c *Config) normalize() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	switch c.Storage {
	case "":
		c.Storage = StoragePostgres
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	c.UI.MountPath = "/" + strings.Trim(c.UI.MountPath, "/")
	if c.UI.MountPath == "/" {
		c.UI.MountPath = ""
	}
	if c.UI.IndexDays <= 0 {
		c.UI.IndexDays = 7
	}
	if c.UI.CalendarWeeks <= 0 {
		c.UI.CalendarWeeks = 5
	}
	if c.UI.HoldDelay <= 0 {
		c.UI.HoldDelay = 200 * time.Millisecond
	}
	return nil
}

// RootPath is the mount path, or "/" when the UI is mounted at the root.
func (c *Config) RootPath() string {
	if c.UI.MountPath == "" {
		return "/"
	}
	return c.UI.MountPath
}

func overrideFromEnv(cfg *Config) {
	if v := pkgconfig.GetEnv("STORAGE", ""); v != "" {
		cfg.Storage = v
	}
	pkgconfig.OverrideDBFromEnv(&cfg.DB)
	pkgconfig.OverrideMQFromEnv(&cfg.MQ)
	pkgconfig.OverrideRedisFromEnv(&cfg.Redis)
	pkgconfig.OverrideJWTFromEnv(&cfg.JWT)
	pkgconfig.OverrideServerFromEnv(&cfg.Server)
}
