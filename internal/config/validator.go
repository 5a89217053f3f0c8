package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "cache.max_entries")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found, not just the first.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Lock.MaxTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "lock.max_timeout_ms",
			Value:   c.Lock.MaxTimeoutMs,
			Message: "must be positive",
		})
	}

	if c.Retry.BaseDelayMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "retry.base_delay_ms",
			Value:   c.Retry.BaseDelayMs,
			Message: "must be positive",
		})
	}
	if c.Retry.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "retry.max_retries",
			Value:   c.Retry.MaxRetries,
			Message: "must not be negative",
		})
	}
	if c.Retry.MaxDelayMs < c.Retry.BaseDelayMs {
		errors = append(errors, ValidationError{
			Field:   "retry.max_delay_ms",
			Value:   c.Retry.MaxDelayMs,
			Message: "must be at least retry.base_delay_ms",
		})
	}

	if c.Cache.MaxEntries <= 0 {
		errors = append(errors, ValidationError{
			Field:   "cache.max_entries",
			Value:   c.Cache.MaxEntries,
			Message: "must be positive",
		})
	}
	if c.Cache.TTLMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "cache.ttl_ms",
			Value:   c.Cache.TTLMs,
			Message: "must be positive",
		})
	}

	if c.Watch.DebounceMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "watch.debounce_ms",
			Value:   c.Watch.DebounceMs,
			Message: "must be positive",
		})
	}

	if c.Maintenance.IntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "maintenance.interval_ms",
			Value:   c.Maintenance.IntervalMs,
			Message: "must be positive",
		})
	}
	if c.Maintenance.BackupRetentionHours < 0 {
		errors = append(errors, ValidationError{
			Field:   "maintenance.backup_retention_hours",
			Value:   c.Maintenance.BackupRetentionHours,
			Message: "must not be negative",
		})
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of %v", ValidLogLevels()),
		})
	}

	return errors
}
