package errors

import (
	"fmt"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestLockTimeoutError(t *testing.T) {
	err := NewLockTimeoutError("/ws/state.json", 5*time.Second)

	if !Is(err, ErrLockTimeout) {
		t.Error("LockTimeoutError should match ErrLockTimeout")
	}
	if !strings.Contains(err.Error(), "/ws/state.json") {
		t.Errorf("Error() = %q, want path in message", err.Error())
	}
	if !strings.Contains(err.Error(), "5s") {
		t.Errorf("Error() = %q, want timeout in message", err.Error())
	}

	var lte *LockTimeoutError
	if !As(err, &lte) {
		t.Error("As() should match *LockTimeoutError")
	}
}

func TestLockTimeoutErrorWithCause(t *testing.T) {
	cause := New("held by pid 1234")
	err := NewLockTimeoutError("/ws/f", time.Second).WithCause(cause)

	if !Is(err, cause) {
		t.Error("wrapped cause should be matched by Is")
	}
	if Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", Unwrap(err), cause)
	}
}

func TestWriteVerificationError(t *testing.T) {
	err := NewWriteVerificationError("/ws/f", 100, 90)

	if !strings.Contains(err.Error(), "wrote 100 bytes, read back 90") {
		t.Errorf("Error() = %q, want byte counts", err.Error())
	}

	var wve *WriteVerificationError
	if !As(err, &wve) {
		t.Error("As() should match *WriteVerificationError")
	}
	if wve.Expected != 100 || wve.Actual != 90 {
		t.Errorf("byte counts = (%d, %d), want (100, 90)", wve.Expected, wve.Actual)
	}
}

func TestReadError(t *testing.T) {
	cause := fmt.Errorf("open: %w", syscall.ENOENT)
	err := NewReadError("/ws/missing", cause)

	if !Is(err, syscall.ENOENT) {
		t.Error("ReadError should unwrap to the underlying errno")
	}
	if !strings.Contains(err.Error(), "/ws/missing") {
		t.Errorf("Error() = %q, want path in message", err.Error())
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name       string
		violations []string
		path       string
		want       []string
	}{
		{
			name:       "single violation",
			violations: []string{"missing required field 'name'"},
			want:       []string{"missing required field 'name'"},
		},
		{
			name:       "all violations reported",
			violations: []string{"missing 'a'", "'b' must be integer", "'c' must be string"},
			want:       []string{"missing 'a'", "'b' must be integer", "'c' must be string"},
		},
		{
			name:       "path included",
			violations: []string{"missing 'a'"},
			path:       "/ws/state.json",
			want:       []string{"/ws/state.json", "missing 'a'"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.violations)
			if tt.path != "" {
				err = err.WithPath(tt.path)
			}

			for _, want := range tt.want {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Error() = %q, want substring %q", err.Error(), want)
				}
			}
			if len(err.Violations) != len(tt.violations) {
				t.Errorf("Violations len = %d, want %d", len(err.Violations), len(tt.violations))
			}
		})
	}
}

func TestRetryExhaustedError(t *testing.T) {
	cause := fmt.Errorf("stat: %w", syscall.EBUSY)
	err := NewRetryExhaustedError(3, cause)

	if !Is(err, syscall.EBUSY) {
		t.Error("RetryExhaustedError should unwrap to the last error")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("Error() = %q, want attempt count", err.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "resource busy", err: syscall.EBUSY, want: true},
		{name: "try again", err: syscall.EAGAIN, want: true},
		{name: "too many open files", err: syscall.EMFILE, want: true},
		{name: "file table overflow", err: syscall.ENFILE, want: true},
		{name: "interrupted", err: syscall.EINTR, want: true},
		{name: "text file busy", err: syscall.ETXTBSY, want: true},
		{name: "not found", err: syscall.ENOENT, want: true},
		{name: "wrapped errno", err: fmt.Errorf("write: %w", syscall.EBUSY), want: true},
		{name: "permission denied", err: syscall.EACCES, want: false},
		{name: "validation failure", err: NewValidationError([]string{"bad"}), want: false},
		{name: "verification failure", err: NewWriteVerificationError("/f", 1, 0), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	base := New("base")
	wrapped := Wrap(base, "context")
	if !Is(wrapped, base) {
		t.Error("wrapped error should match base")
	}
	if wrapped.Error() != "context: base" {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), "context: base")
	}
}
