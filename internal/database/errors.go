package database

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies an execution failure reported by the remote service.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindSyntax
	KindPermission
	KindQuota
	KindTransient
	KindTimeout
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindPermission:
		return "permission"
	case KindQuota:
		return "quota"
	case KindTransient:
		return "transient"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Retryable reports whether a failure of this kind is expected to succeed on
// a later attempt. Quota rejections are deliberately not retryable.
func (k ErrorKind) Retryable() bool {
	return k == KindTransient
}

// Error is a classified execution failure. Drivers wrap server errors into
// this type so the executor can decide on retries without knowing the
// server's error codes.
type Error struct {
	Kind  ErrorKind
	Query string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("execute (%s): %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Classify maps an error to its kind. Classified driver errors keep their
// kind; context and network errors are mapped here so fakes and transports
// that bypass the driver still classify sensibly.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return KindTimeout
		}
		return KindTransient
	}
	return KindUnknown
}
