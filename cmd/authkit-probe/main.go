// Command authkit-probe exercises a live auth backend end to end: it logs
// in with the configured credentials, verifies the session, simulates
// activity, logs out, and prints the collected counters. Useful as a smoke
// test against a staging deployment.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/parceldesk/authkit"
)

type probeConfig struct {
	AuthBaseURL string
	TenantID    string
	Email       string
	Password    string
	Redis       struct {
		Addr     string
		Password string
		DB       int
	}
	Logging struct {
		Level string
	}
}

func loadConfig() (*probeConfig, error) {
	v := viper.New()
	v.SetConfigName("probe")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("AUTHKIT_PROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("authbaseurl", "http://127.0.0.1:4000")
	v.SetDefault("redis.db", 0)
	v.SetDefault("logging.level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg probeConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
	}); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &cfg, nil
}

func newLogger(level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	return logger
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := newLogger(cfg.Logging.Level)

	if cfg.Email == "" || cfg.Password == "" {
		logger.Fatal().Msg("email and password are required (AUTHKIT_PROBE_EMAIL / AUTHKIT_PROBE_PASSWORD)")
	}

	addr := cfg.Redis.Addr
	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			logger.Fatal().Err(err).Msg("embedded redis failed to start")
		}
		addr = mr.Addr()
		cleanup = mr.Close
		logger.Info().Str("addr", addr).Msg("no redis configured, using embedded instance")
	}
	if cleanup != nil {
		defer cleanup()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}

	builder := authkit.New().
		WithAuthBaseURL(cfg.AuthBaseURL).
		WithRedis(client).
		WithLogger(logger)
	if cfg.TenantID != "" {
		builder = builder.WithTenant(cfg.TenantID)
	}
	mgr, err := builder.Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("session manager construction failed")
	}
	defer mgr.Close()

	login := mgr.Login(ctx, authkit.Credentials{Email: cfg.Email, Password: cfg.Password})
	if !login.Success {
		logger.Fatal().Str("error", login.Error).Msg("login failed")
	}
	logger.Info().
		Str("user", login.User.Email).
		Str("access_level", string(login.AccessLevel)).
		Str("account_status", string(login.AccountStatus)).
		Str("redirect", login.RedirectTo).
		Msg("login ok")

	check := mgr.CheckAuth(ctx)
	logger.Info().Bool("authenticated", check.Authenticated).Msg("auth check")

	mgr.ExtendSession(ctx)
	logger.Info().
		Dur("token_ttl", mgr.TimeUntilExpiry()).
		Bool("idle_expired", mgr.IsSessionExpired()).
		Msg("session extended")

	snap := mgr.Snapshot()
	if snap.HasPermission("orders.read") {
		logger.Info().Msg("orders.read permitted")
	}

	mgr.Logout(ctx)
	logger.Info().Msg("logged out")

	for id, n := range mgr.MetricsSnapshot().Counters {
		if n > 0 {
			logger.Info().Str("metric", id.String()).Uint64("count", n).Msg("counter")
		}
	}
}
