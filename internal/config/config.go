package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"ensname/internal/domain"
	"ensname/internal/registry"
)

type Config struct {
	HTTPAddr string `validate:"required"`
	GRPCAddr string `validate:"required"`

	// RPCURL is the Ethereum JSON-RPC endpoint. Registry lookups are
	// disabled when it is empty.
	RPCURL               string  `validate:"omitempty,url"`
	RPCRate              float64 `validate:"gte=0"`
	RPCBurst             int     `validate:"gte=1"`
	RegistryAddress      string  `validate:"required,eth_addr"`
	BaseRegistrarAddress string  `validate:"required,eth_addr"`
	TLD                  string  `validate:"required"`
	TextKeys             []string

	ReservedWords     []string
	ReservedWordsFile string

	CacheBackend string        `validate:"oneof=memory redis"`
	CacheSize    int           `validate:"gte=1"`
	CacheTTL     time.Duration `validate:"gte=0"`
	RedisURL     string        `validate:"required_if=CacheBackend redis"`

	WatchNames     []string
	UpdateInterval time.Duration

	LogLevel string `validate:"required"`
	Env      string `validate:"oneof=development production"`
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("grpc_addr", ":9090")

	v.SetDefault("rpc_url", "")
	v.SetDefault("rpc_rate", 10)
	v.SetDefault("rpc_burst", 20)
	v.SetDefault("registry_address", registry.MainnetRegistry.Hex())
	v.SetDefault("base_registrar_address", registry.MainnetBaseRegistrar.Hex())
	v.SetDefault("tld", "eth")
	v.SetDefault("text_keys", "url,avatar,description,com.twitter,com.github")

	v.SetDefault("reserved_words", domain.DefaultReservedWords())
	v.SetDefault("reserved_words_file", "")

	v.SetDefault("cache_backend", "memory")
	v.SetDefault("cache_size", 4096)
	v.SetDefault("cache_ttl", "5m")
	v.SetDefault("redis_url", "")

	v.SetDefault("watch_names", "")
	v.SetDefault("update_interval", "15m")

	v.SetDefault("log_level", "info")
	v.SetDefault("env", "development")
}

// Load reads ENSNAME_* environment variables and an optional ensname.yaml
// from the working directory or /etc/ensname.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ensname")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("ensname")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/ensname")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		HTTPAddr:             v.GetString("http_addr"),
		GRPCAddr:             v.GetString("grpc_addr"),
		RPCURL:               v.GetString("rpc_url"),
		RPCRate:              v.GetFloat64("rpc_rate"),
		RPCBurst:             v.GetInt("rpc_burst"),
		RegistryAddress:      v.GetString("registry_address"),
		BaseRegistrarAddress: v.GetString("base_registrar_address"),
		TLD:                  strings.ToLower(strings.TrimSpace(v.GetString("tld"))),
		TextKeys:             stringList(v.Get("text_keys")),
		ReservedWords:        stringList(v.Get("reserved_words")),
		ReservedWordsFile:    v.GetString("reserved_words_file"),
		CacheBackend:         v.GetString("cache_backend"),
		CacheSize:            v.GetInt("cache_size"),
		RedisURL:             v.GetString("redis_url"),
		WatchNames:           stringList(v.Get("watch_names")),
		LogLevel:             v.GetString("log_level"),
		Env:                  v.GetString("env"),
	}

	var err error
	if cfg.CacheTTL, err = duration(v, "cache_ttl"); err != nil {
		return Config{}, err
	}
	if cfg.UpdateInterval, err = duration(v, "update_interval"); err != nil {
		return Config{}, err
	}
	if cfg.UpdateInterval < time.Minute {
		return Config{}, fmt.Errorf("update_interval too small (%s), must be >=1m", cfg.UpdateInterval)
	}
	if cfg.UpdateInterval > 24*time.Hour {
		return Config{}, fmt.Errorf("update_interval too large (%s), must be <=24h", cfg.UpdateInterval)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.ReservedWordsFile != "" {
		words, err := loadReservedWords(cfg.ReservedWordsFile)
		if err != nil {
			return Config{}, err
		}
		cfg.ReservedWords = words
	}

	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
	return d, nil
}

func loadReservedWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reserved_words_file: %w", err)
	}
	defer f.Close()

	p, err := domain.LoadPolicy(f)
	if err != nil {
		return nil, fmt.Errorf("reserved_words_file %s: %w", path, err)
	}
	return p.Reserved, nil
}

// stringList accepts a YAML list or a comma separated string.
func stringList(raw any) []string {
	var items []string
	switch val := raw.(type) {
	case nil:
		return nil
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []any:
		for _, it := range val {
			items = append(items, fmt.Sprint(it))
		}
	default:
		items = []string{fmt.Sprint(val)}
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
