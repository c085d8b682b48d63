package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds service level settings. Database and logger settings are read
// by pkg/database and pkg/utilities directly.
type Config struct {
	Addr          string
	RedisURL      string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SnowflakeNode int64

	DeletionGraceDays int
	DeletionCron      string

	LinkPreviewTimeout time.Duration

	GithubClientID     string
	GithubClientSecret string
	GithubRedirectURL  string
	GithubTimeout      time.Duration
}

func defaults(v *viper.Viper) {
	v.SetDefault("http_addr", "0.0.0.0:8431")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("jwt_issuer", "http://localhost:8431")
	v.SetDefault("access_ttl", "15m")
	v.SetDefault("refresh_ttl", "720h")
	v.SetDefault("snowflake_node", 1)
	v.SetDefault("deletion_grace_days", 90)
	v.SetDefault("deletion_cron", "0 3 * * *")
	v.SetDefault("link_preview_timeout", "5s")
	v.SetDefault("github_client_id", "")
	v.SetDefault("github_client_secret", "")
	v.SetDefault("github_redirect_url", "http://localhost:8431/api/oauth/github/callback")
	v.SetDefault("github_timeout", "5s")
}

// Load reads .env (if present) and the process environment. Keys are the
// upper-cased setting names, e.g. DELETION_GRACE_DAYS.
func Load() Config {
	// best-effort: a missing .env is normal outside local development
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)
	return v
}

// FromViper maps a populated viper instance onto Config.
func FromViper(v *viper.Viper) Config {
	grace := v.GetInt("deletion_grace_days")
	if grace <= 0 {
		grace = 90
	}
	return Config{
		Addr:               v.GetString("http_addr"),
		RedisURL:           v.GetString("redis_url"),
		Issuer:             v.GetString("jwt_issuer"),
		AccessTTL:          v.GetDuration("access_ttl"),
		RefreshTTL:         v.GetDuration("refresh_ttl"),
		SnowflakeNode:      v.GetInt64("snowflake_node"),
		DeletionGraceDays:  grace,
		DeletionCron:       v.GetString("deletion_cron"),
		LinkPreviewTimeout: v.GetDuration("link_preview_timeout"),
		GithubClientID:     v.GetString("github_client_id"),
		GithubClientSecret: v.GetString("github_client_secret"),
		GithubRedirectURL:  v.GetString("github_redirect_url"),
		GithubTimeout:      v.GetDuration("github_timeout"),
	}
}
