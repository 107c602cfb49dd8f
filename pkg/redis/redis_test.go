package redis

import (
	"context"
	"os"
	"testing"
	"time"
)

func integrationConfig() *Config {
	cfg := DefaultConfig()
	if host := os.Getenv("REDIS_TEST_HOST"); host != "" {
		cfg.Host = host
	}
	cfg.MaxRetries = 0
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Host != "localhost" {
		t.Errorf("expected host localhost, got %s", cfg.Host)
	}
	if cfg.Port != 6379 {
		t.Errorf("expected port 6379, got %d", cfg.Port)
	}
	if cfg.PoolSize <= 0 {
		t.Errorf("expected positive pool size, got %d", cfg.PoolSize)
	}
	if cfg.DialTimeout <= 0 {
		t.Error("expected positive dial timeout")
	}
}

func TestConfig_Addr(t *testing.T) {
	cfg := &Config{Host: "cache.internal", Port: 6380}
	if got := cfg.Addr(); got != "cache.internal:6380" {
		t.Errorf("expected cache.internal:6380, got %s", got)
	}
}

func TestScriptSHA(t *testing.T) {
	// Known SHA1 of "return 1", matches what SCRIPT LOAD returns.
	sha := scriptSHA("return 1")
	if sha != "e0e1f9fabfc9d4800c877a703b823ac0578ff8db" {
		t.Errorf("unexpected sha: %s", sha)
	}
	if len(scriptSHA("")) != 40 {
		t.Error("expected 40 hex chars for empty script")
	}
}

func TestIsNoScriptError(t *testing.T) {
	if isNoScriptError(nil) {
		t.Error("nil error should not match")
	}
	if !isNoScriptError(errNoScript) {
		t.Error("NOSCRIPT error should match")
	}
	if isNoScriptError(context.DeadlineExceeded) {
		t.Error("unrelated error should not match")
	}
}

type fakeError string

func (e fakeError) Error() string { return string(e) }

var errNoScript = fakeError("NOSCRIPT No matching script. Please use EVAL.")

func TestNewClient_RefusesUnreachableHost(t *testing.T) {
	cfg := &Config{
		Host:        "localhost",
		Port:        1,
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  0,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := NewClient(ctx, cfg); err == nil {
		t.Fatal("expected connection error for unreachable port")
	}
}

func TestClient_ScriptRoundtrip_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, integrationConfig())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	const script = "return redis.call('SET', KEYS[1], ARGV[1])"

	sha, err := client.LoadScript(ctx, "test_set", script)
	if err != nil {
		t.Fatalf("load script: %v", err)
	}
	if cached, ok := client.ScriptSHA("test_set"); !ok || cached != sha {
		t.Errorf("expected cached sha %s, got %s (ok=%v)", sha, cached, ok)
	}

	key := "redis_test:script:" + time.Now().Format("150405.000")
	defer client.Del(ctx, key)

	if err := client.EvalWithFallback(ctx, "test_set", script, []string{key}, "hello").Err(); err != nil {
		t.Fatalf("eval: %v", err)
	}
	got, err := client.Get(ctx, key).Result()
	if err != nil || got != "hello" {
		t.Errorf("expected hello, got %q (err=%v)", got, err)
	}
}

func TestClient_SetNXGuard_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, integrationConfig())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	key := "redis_test:guard:" + time.Now().Format("150405.000")
	defer client.Del(ctx, key)

	first, err := client.SetNX(ctx, key, "1", time.Second).Result()
	if err != nil || !first {
		t.Fatalf("expected first SetNX to win, got %v (err=%v)", first, err)
	}
	second, err := client.SetNX(ctx, key, "1", time.Second).Result()
	if err != nil || second {
		t.Errorf("expected second SetNX to lose, got %v (err=%v)", second, err)
	}
}
