// Package appconfig loads dispatchctl's YAML configuration file into a
// dispatch.Config, following the teacher pack's config-file-plus-env
// pattern: a struct with yaml tags, unmarshaled with gopkg.in/yaml.v3,
// then overridden field-by-field from environment variables loaded via
// godotenv so the same binary works from a config file, from an .env
// file, or from container env vars alone.
package appconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kocayinsec/network-automation-sender/dispatch"
)

// File is the on-disk shape of dispatchctl's config file.
type File struct {
	Workers struct {
		Count      int `yaml:"count"`
		MaxQueue   int `yaml:"max_queue"`
	} `yaml:"workers"`

	RateLimit struct {
		PerSecond float64 `yaml:"per_second"`
		Burst     int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	Cache struct {
		TTL        time.Duration `yaml:"ttl"`
		MaxEntries int           `yaml:"max_entries"`
		Backend    string        `yaml:"backend"` // "memory" or "redis"
		RedisAddr  string        `yaml:"redis_addr"`
	} `yaml:"cache"`

	Breaker struct {
		FailureThreshold int           `yaml:"failure_threshold"`
		RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
		SuccessThreshold int           `yaml:"success_threshold"`
		HalfOpenMaxCalls int           `yaml:"half_open_max_calls"`
	} `yaml:"breaker"`

	Retry struct {
		MaxRetries        int           `yaml:"max_retries"`
		InitialBackoff    time.Duration `yaml:"initial_backoff"`
		MaxBackoff        time.Duration `yaml:"max_backoff"`
		BackoffMultiplier float64       `yaml:"backoff_multiplier"`
		Jitter            float64       `yaml:"jitter"`
	} `yaml:"retry"`

	RequestTimeout   time.Duration `yaml:"request_timeout"`
	EntryTTL         time.Duration `yaml:"entry_ttl"`
	DrainGrace       time.Duration `yaml:"drain_grace"`
	QueuePersistPath string        `yaml:"queue_persist_path"`

	Monitor struct {
		CollectInterval time.Duration `yaml:"collect_interval"`
	} `yaml:"monitor"`

	DeadLetter struct {
		Capacity   int    `yaml:"capacity"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"dead_letter"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

// Load reads a YAML config file at path into a File. Fields the file
// leaves out stay at their zero value here; ToDispatchConfig is what fills
// them from dispatch.DefaultConfig.
func Load(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("appconfig: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("appconfig: parse %s: %w", path, err)
	}
	return f, nil
}

// ToDispatchConfig converts a loaded File into a dispatch.Config, filling
// gaps from dispatch.DefaultConfig.
func (f File) ToDispatchConfig() dispatch.Config {
	cfg := dispatch.DefaultConfig()

	if f.Workers.Count > 0 {
		cfg.MaxConcurrentRequests = f.Workers.Count
	}
	cfg.MaxQueueSize = f.Workers.MaxQueue

	if f.RateLimit.PerSecond > 0 {
		cfg.RateLimitPerSecond = f.RateLimit.PerSecond
	}
	if f.RateLimit.Burst > 0 {
		cfg.RateLimitBurst = f.RateLimit.Burst
	}

	if f.Cache.TTL > 0 {
		cfg.CacheTTL = f.Cache.TTL
	}
	if f.Cache.MaxEntries > 0 {
		cfg.CacheMaxEntries = f.Cache.MaxEntries
	}

	if f.Breaker.FailureThreshold > 0 {
		cfg.BreakerFailureThreshold = f.Breaker.FailureThreshold
	}
	if f.Breaker.RecoveryTimeout > 0 {
		cfg.BreakerRecoveryTimeout = f.Breaker.RecoveryTimeout
	}
	if f.Breaker.SuccessThreshold > 0 {
		cfg.BreakerSuccessThreshold = f.Breaker.SuccessThreshold
	}
	if f.Breaker.HalfOpenMaxCalls > 0 {
		cfg.BreakerHalfOpenMaxCalls = f.Breaker.HalfOpenMaxCalls
	}

	if f.Retry.MaxRetries > 0 {
		cfg.MaxRetries = f.Retry.MaxRetries
	}
	if f.Retry.InitialBackoff > 0 {
		cfg.InitialBackoff = f.Retry.InitialBackoff
	}
	if f.Retry.MaxBackoff > 0 {
		cfg.MaxBackoff = f.Retry.MaxBackoff
	}
	if f.Retry.BackoffMultiplier > 0 {
		cfg.BackoffMultiplier = f.Retry.BackoffMultiplier
	}
	if f.Retry.Jitter > 0 {
		cfg.Jitter = f.Retry.Jitter
	}

	if f.RequestTimeout > 0 {
		cfg.RequestTimeout = f.RequestTimeout
	}
	if f.EntryTTL > 0 {
		cfg.EntryTTL = f.EntryTTL
	}
	if f.DrainGrace > 0 {
		cfg.DrainGrace = f.DrainGrace
	}
	if f.Monitor.CollectInterval > 0 {
		cfg.MonitorCollectInterval = f.Monitor.CollectInterval
	}
	if f.DeadLetter.Capacity > 0 {
		cfg.DeadLetterCapacity = f.DeadLetter.Capacity
	}
	cfg.QueuePersistPath = f.QueuePersistPath

	return cfg
}

// ApplyEnvOverrides mutates f in place from environment variables, called
// after godotenv.Load has populated the process environment from an .env
// file (if present). Only a handful of operational knobs are exposed this
// way; structural config still belongs in the YAML file.
func ApplyEnvOverrides(f *File) {
	if v := os.Getenv("DISPATCHCTL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Workers.Count = n
		}
	}
	if v := os.Getenv("DISPATCHCTL_RATE_LIMIT"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			f.RateLimit.PerSecond = n
		}
	}
	if v := os.Getenv("DISPATCHCTL_REDIS_ADDR"); v != "" {
		f.Cache.RedisAddr = v
		f.Cache.Backend = "redis"
	}
	if v := os.Getenv("DISPATCHCTL_DEAD_LETTER_DSN"); v != "" {
		f.DeadLetter.PostgresDSN = v
	}
	if v := os.Getenv("DISPATCHCTL_ADDR"); v != "" {
		f.Server.Addr = v
	}
	if v := os.Getenv("DISPATCHCTL_QUEUE_PERSIST_PATH"); v != "" {
		f.QueuePersistPath = v
	}
}
