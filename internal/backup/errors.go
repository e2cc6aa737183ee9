// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can branch without string matching.
type Kind string

const (
	KindConfiguration     Kind = "configuration"
	KindConnectivity      Kind = "connectivity"
	KindTimeout           Kind = "timeout"
	KindStorage           Kind = "storage"
	KindInvalidTransition Kind = "invalid_transition"
	KindAlreadyRunning    Kind = "already_running"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindUnknown           Kind = "unknown"
)

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrConfiguration     = &Error{Kind: KindConfiguration}
	ErrConnectivity      = &Error{Kind: KindConnectivity}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrStorage           = &Error{Kind: KindStorage}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrAlreadyRunning    = &Error{Kind: KindAlreadyRunning}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrConflict          = &Error{Kind: KindConflict}
)

// Error is the typed error returned across the backup domain.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// NewError builds an *Error without a cause.
func NewError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// WrapError builds an *Error around err. A nil err yields nil.
func WrapError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so that errors.Is(err, ErrNotFound) works for any
// not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
