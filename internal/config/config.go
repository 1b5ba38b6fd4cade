package config

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "CHARACTER"

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr       string
		CORSOrigin string
		RateLimit  int
		// RateWindow is parsed from server.ratewindow.
		RateWindow time.Duration `mapstructure:"-"`
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret        string
		JWTRefreshSecret string
		AccessTTL        time.Duration `mapstructure:"-"`
		RefreshTTL       time.Duration `mapstructure:"-"`
	}
	Log struct {
		Level string
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
}

// Options tweaks where Load looks for configuration.
type Options struct {
	// ConfigFile is an explicit config file; empty means an optional ./config.*.
	ConfigFile string
	// DotEnv is the .env file to preload; empty means ./.env.
	DotEnv string
}

// Load reads configuration from environment variables and optional config files.
func Load(opts Options) (Config, error) {
	dotEnv := opts.DotEnv
	if dotEnv == "" {
		dotEnv = ".env"
	}
	loadDotEnv(dotEnv)

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:5000")
	v.SetDefault("server.corsorigin", "*")
	v.SetDefault("server.ratelimit", 100)
	v.SetDefault("server.ratewindow", "15m")
	v.SetDefault("database.path", "data/character-creator.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.jwtrefreshsecret", "")
	v.SetDefault("auth.accessttl", "24h")
	v.SetDefault("auth.refreshttl", "7d")
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "character-exports")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")

	// unprefixed names kept for deployments configured with plain variables
	aliases := map[string]string{
		"auth.jwtsecret":        "JWT_SECRET",
		"auth.jwtrefreshsecret": "JWT_REFRESH_SECRET",
		"auth.accessttl":        "JWT_EXPIRES_IN",
		"auth.refreshttl":       "JWT_REFRESH_EXPIRES_IN",
		"server.corsorigin":     "CORS_ORIGIN",
	}
	for key, alias := range aliases {
		if err := v.BindEnv(key, envKey(key), alias); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", alias, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		_ = v.ReadInConfig() // optional file
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv(envKey("server.addr")) == "" {
		cfg.Server.Addr = net.JoinHostPort("0.0.0.0", port)
	}

	var err error
	if cfg.Server.RateWindow, err = ParseDuration(v.GetString("server.ratewindow")); err != nil {
		return Config{}, fmt.Errorf("server.ratewindow: %w", err)
	}
	if cfg.Auth.AccessTTL, err = ParseDuration(v.GetString("auth.accessttl")); err != nil {
		return Config{}, fmt.Errorf("auth.accessttl: %w", err)
	}
	if cfg.Auth.RefreshTTL, err = ParseDuration(v.GetString("auth.refreshttl")); err != nil {
		return Config{}, fmt.Errorf("auth.refreshttl: %w", err)
	}

	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth jwt secret is required")
	}
	if c.Server.RateLimit <= 0 {
		return errors.New("server rate limit must be positive")
	}
	if c.Server.RateWindow <= 0 || c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("durations must be positive")
	}
	return nil
}

// ParseDuration accepts time.ParseDuration syntax plus a whole-day suffix such as "7d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid day duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func envKey(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
