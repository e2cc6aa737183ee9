// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	t.Parallel()

	err := NewError(KindNotFound, "backup.find", "task not found: abc")
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is(err, ErrNotFound)")
	}
	if errors.Is(err, ErrConflict) {
		t.Error("did not expect errors.Is(err, ErrConflict)")
	}

	wrapped := fmt.Errorf("api: %w", err)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("expected wrapped error to match ErrNotFound")
	}
	if KindOf(wrapped) != KindNotFound {
		t.Errorf("KindOf = %s, want %s", KindOf(wrapped), KindNotFound)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message only", NewError(KindTimeout, "", "too slow"), "too slow"},
		{"op and message", NewError(KindTimeout, "redis.wait", "too slow"), "redis.wait: too slow"},
		{"cause only", &Error{Kind: KindStorage, Op: "file.copy", Err: io.ErrUnexpectedEOF}, "file.copy: unexpected EOF"},
		{"message and cause", &Error{Kind: KindStorage, Message: "copy", Err: io.EOF}, "copy: EOF"},
		{"kind fallback", &Error{Kind: KindConflict}, "conflict"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	if WrapError(KindStorage, "op", nil) != nil {
		t.Error("WrapError(nil) should be nil")
	}
	err := WrapError(KindStorage, "file.copy", io.EOF)
	if !errors.Is(err, io.EOF) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if !errors.Is(err, ErrStorage) {
		t.Error("expected storage kind")
	}
}

func TestKindOfUnknown(t *testing.T) {
	t.Parallel()

	if KindOf(io.EOF) != KindUnknown {
		t.Error("plain errors should be KindUnknown")
	}
	if KindOf(nil) != KindUnknown {
		t.Error("nil should be KindUnknown")
	}
}
