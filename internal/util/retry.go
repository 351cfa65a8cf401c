package util

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"time"
)

// RetryConfig holds retry configuration for copies onto removable or
// network export targets. The capture pipeline itself never retries.
type RetryConfig struct {
	MaxAttempts int           // Total attempts, 1 means no retry
	InitialWait time.Duration // Doubled after each failed attempt
	MaxWait     time.Duration // Upper bound for a single wait
}

// ExportRetryConfig returns the retry policy used when n attempts are allowed
func ExportRetryConfig(attempts int) *RetryConfig {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryConfig{
		MaxAttempts: attempts,
		InitialWait: 200 * time.Millisecond,
		MaxWait:     5 * time.Second,
	}
}

// NoRetry returns a policy of a single attempt
func NoRetry() *RetryConfig {
	return &RetryConfig{MaxAttempts: 1}
}

// IsRetryableError checks if an error is a transient filesystem failure
// (USB sticks dropping out, SMB shares stalling)
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN, syscall.ETIMEDOUT, syscall.EIO, syscall.EBUSY:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timed out", "timeout", "temporarily unavailable", "i/o error"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Retry runs operation until it succeeds, fails permanently, the attempts are
// exhausted or ctx is done
func Retry(ctx context.Context, cfg *RetryConfig, operation func() error, operationName string) error {
	if cfg == nil {
		cfg = NoRetry()
	}
	wait := cfg.InitialWait

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err = operation(); err == nil {
			if attempt > 1 {
				DebugLog("Retry: %s succeeded on attempt %d/%d", operationName, attempt, cfg.MaxAttempts)
			}
			return nil
		}
		if !IsRetryableError(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		DebugLog("Retry: %s failed (attempt %d/%d), retrying in %v: %v",
			operationName, attempt, cfg.MaxAttempts, wait, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		wait *= 2
		if wait > cfg.MaxWait {
			wait = cfg.MaxWait
		}
	}

	if cfg.MaxAttempts > 1 {
		WarnLog("Retry: %s failed after %d attempts: %v", operationName, cfg.MaxAttempts, err)
		return fmt.Errorf("max retries exceeded (%d attempts): %w", cfg.MaxAttempts, err)
	}
	return err
}
