package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyDriverError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Kind: KindQuota, Cause: errors.New("out of slots")})
	if got := Classify(err); got != KindQuota {
		t.Errorf("got %v, want quota", got)
	}
}

func TestClassifyContextErrors(t *testing.T) {
	if got := Classify(context.DeadlineExceeded); got != KindTimeout {
		t.Errorf("deadline: got %v, want timeout", got)
	}
	if got := Classify(context.Canceled); got != KindCanceled {
		t.Errorf("canceled: got %v, want canceled", got)
	}
}

func TestClassifyUnknown(t *testing.T) {
	if got := Classify(errors.New("boom")); got != KindUnknown {
		t.Errorf("got %v, want unknown", got)
	}
}

func TestRetryable(t *testing.T) {
	for kind, want := range map[ErrorKind]bool{
		KindTransient:  true,
		KindQuota:      false,
		KindSyntax:     false,
		KindPermission: false,
		KindTimeout:    false,
	} {
		if kind.Retryable() != want {
			t.Errorf("%v retryable = %v, want %v", kind, kind.Retryable(), want)
		}
	}
}
