package appconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kocayinsec/network-automation-sender/dispatch"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dispatchctl.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesYAML(t *testing.T) {
	path := writeConfig(t, `
workers:
  count: 8
  max_queue: 500
rate_limit:
  per_second: 50
  burst: 10
cache:
  ttl: 30s
  backend: redis
  redis_addr: localhost:6379
server:
  addr: :9090
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Workers.Count != 8 {
		t.Errorf("Workers.Count = %d, want 8", f.Workers.Count)
	}
	if f.RateLimit.PerSecond != 50 {
		t.Errorf("RateLimit.PerSecond = %v, want 50", f.RateLimit.PerSecond)
	}
	if f.Cache.TTL != 30*time.Second {
		t.Errorf("Cache.TTL = %v, want 30s", f.Cache.TTL)
	}
	if f.Cache.Backend != "redis" {
		t.Errorf("Cache.Backend = %q, want redis", f.Cache.Backend)
	}
	if f.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", f.Server.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestToDispatchConfigFillsGapsFromDefault(t *testing.T) {
	var f File
	cfg := f.ToDispatchConfig()

	def := dispatch.DefaultConfig()
	if cfg.MaxConcurrentRequests != def.MaxConcurrentRequests {
		t.Errorf("MaxConcurrentRequests = %d, want default %d", cfg.MaxConcurrentRequests, def.MaxConcurrentRequests)
	}
	if cfg.RateLimitPerSecond != def.RateLimitPerSecond {
		t.Errorf("RateLimitPerSecond = %v, want default %v", cfg.RateLimitPerSecond, def.RateLimitPerSecond)
	}
}

func TestToDispatchConfigOverridesFromFile(t *testing.T) {
	var f File
	f.Workers.Count = 16
	f.Retry.MaxRetries = 7

	cfg := f.ToDispatchConfig()
	if cfg.MaxConcurrentRequests != 16 {
		t.Errorf("MaxConcurrentRequests = %d, want 16", cfg.MaxConcurrentRequests)
	}
	if cfg.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want 7", cfg.MaxRetries)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DISPATCHCTL_WORKERS", "12")
	t.Setenv("DISPATCHCTL_RATE_LIMIT", "99.5")
	t.Setenv("DISPATCHCTL_REDIS_ADDR", "cache:6379")
	t.Setenv("DISPATCHCTL_ADDR", ":7070")

	var f File
	ApplyEnvOverrides(&f)

	if f.Workers.Count != 12 {
		t.Errorf("Workers.Count = %d, want 12", f.Workers.Count)
	}
	if f.RateLimit.PerSecond != 99.5 {
		t.Errorf("RateLimit.PerSecond = %v, want 99.5", f.RateLimit.PerSecond)
	}
	if f.Cache.RedisAddr != "cache:6379" {
		t.Errorf("Cache.RedisAddr = %q, want cache:6379", f.Cache.RedisAddr)
	}
	if f.Cache.Backend != "redis" {
		t.Errorf("Cache.Backend = %q, want redis after setting an addr", f.Cache.Backend)
	}
	if f.Server.Addr != ":7070" {
		t.Errorf("Server.Addr = %q, want :7070", f.Server.Addr)
	}
}
