package repository

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"time"

	pkgredis "github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/redis"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:embed scripts/scan_guard.lua
var scanGuardScript string

// Script name for caching
const scriptScanGuard = "scan_guard"

// RedisScanGuard implements ScanGuard using a Redis keyed TTL marker.
// Identical payloads scanned inside the window share one key, so only the
// first scan wins regardless of which instance served it.
type RedisScanGuard struct {
	client *pkgredis.Client
}

// NewRedisScanGuard creates a new RedisScanGuard
func NewRedisScanGuard(client *pkgredis.Client) *RedisScanGuard {
	return &RedisScanGuard{client: client}
}

// LoadScripts loads the guard Lua script into Redis
func (g *RedisScanGuard) LoadScripts(ctx context.Context) error {
	if _, err := g.client.LoadScript(ctx, scriptScanGuard, scanGuardScript); err != nil {
		return fmt.Errorf("failed to load script %s: %w", scriptScanGuard, err)
	}
	return nil
}

// Acquire returns true when the payload has not been seen inside the
// suppression window
func (g *RedisScanGuard) Acquire(ctx context.Context, payload string, window time.Duration) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.scan_guard.acquire")
	defer span.End()

	sum := sha256.Sum256([]byte(payload))
	key := "scan:guard:" + hex.EncodeToString(sum[:])

	span.SetAttributes(attribute.Int64("window_ms", window.Milliseconds()))

	result := g.client.EvalWithFallback(ctx, scriptScanGuard, scanGuardScript,
		[]string{key}, window.Milliseconds())
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return false, fmt.Errorf("failed to execute scan_guard script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) < 1 {
		span.SetStatus(codes.Error, "unexpected result length")
		return false, fmt.Errorf("unexpected script result length: %d", len(values))
	}

	acquired, _ := values[0].(int64)
	span.SetAttributes(attribute.Bool("acquired", acquired == 1))
	span.SetStatus(codes.Ok, "")
	return acquired == 1, nil
}

// Ensure RedisScanGuard implements ScanGuard
var _ ScanGuard = (*RedisScanGuard)(nil)
