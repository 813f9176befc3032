package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/policy"
)

const dateLayout = "2006-01-02"

// Config holds runtime configuration values for the marketplace API.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	DBMaxOpenConns   int
	DBMaxIdleConns   int
	DBConnMaxLife    time.Duration
	RedisURL         string
	NATSURL          string
	EventsChannel    string
	JWTSecret        string
	JWTIssuer        string
	CORSOrigins      string
	EditRateLimit    int
	Timezone         string
	LockoutStart     string
	LockoutEnd       string
	QuestionLeadDays int
	ClosingHour      int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Policy builds the policy template shared by every request. Callers stamp
// the invocation time with WithNow.
func (c Config) Policy() (policy.PolicyContext, error) {
	location, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return policy.PolicyContext{}, fmt.Errorf("invalid policy timezone %q: %w", c.Timezone, err)
	}

	pc := policy.PolicyContext{
		Location:         location,
		QuestionLeadDays: c.QuestionLeadDays,
		ClosingHour:      c.ClosingHour,
	}

	if c.LockoutStart == "" && c.LockoutEnd == "" {
		return pc, nil
	}
	if c.LockoutStart == "" || c.LockoutEnd == "" {
		return policy.PolicyContext{}, fmt.Errorf("policy lockout requires both start and end dates")
	}

	start, err := time.ParseInLocation(dateLayout, c.LockoutStart, location)
	if err != nil {
		return policy.PolicyContext{}, fmt.Errorf("invalid lockout start: %w", err)
	}
	end, err := time.ParseInLocation(dateLayout, c.LockoutEnd, location)
	if err != nil {
		return policy.PolicyContext{}, fmt.Errorf("invalid lockout end: %w", err)
	}
	if end.Before(start) {
		return policy.PolicyContext{}, fmt.Errorf("lockout end %s is before start %s", c.LockoutEnd, c.LockoutStart)
	}
	pc.Lockout = policy.Lockout{Start: start, End: end}

	return pc, nil
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MARKETPLACE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Digital Marketplace API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("events.channel", "marketplace")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("rate_limit.edits_per_minute", 30)
	v.SetDefault("policy.timezone", "Australia/Canberra")
	v.SetDefault("policy.question_lead_days", 2)
	v.SetDefault("policy.closing_hour", 18)

	connLifetime, err := time.ParseDuration(v.GetString("database.conn_max_lifetime"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid database connection lifetime: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		DBMaxOpenConns:   v.GetInt("database.max_open_conns"),
		DBMaxIdleConns:   v.GetInt("database.max_idle_conns"),
		DBConnMaxLife:    connLifetime,
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		EventsChannel:    strings.TrimSpace(v.GetString("events.channel")),
		JWTSecret:        v.GetString("jwt.secret"),
		JWTIssuer:        v.GetString("jwt.issuer"),
		CORSOrigins:      v.GetString("cors.origins"),
		EditRateLimit:    v.GetInt("rate_limit.edits_per_minute"),
		Timezone:         v.GetString("policy.timezone"),
		LockoutStart:     strings.TrimSpace(v.GetString("policy.lockout_start")),
		LockoutEnd:       strings.TrimSpace(v.GetString("policy.lockout_end")),
		QuestionLeadDays: v.GetInt("policy.question_lead_days"),
		ClosingHour:      v.GetInt("policy.closing_hour"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.QuestionLeadDays <= 0 {
		cfg.QuestionLeadDays = 2
	}

	if cfg.ClosingHour < 0 || cfg.ClosingHour > 23 {
		return Config{}, fmt.Errorf("policy closing hour %d out of range", cfg.ClosingHour)
	}

	return cfg, nil
}
