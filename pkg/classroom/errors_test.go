package classroom

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassroomError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ClassroomError
		expected string
	}{
		{
			name: "with status code",
			err: &ClassroomError{
				Kind:       KindResourceExhausted,
				StatusCode: 429,
				Message:    "Too many requests.",
			},
			expected: "classroom resource_exhausted error (status 429): Too many requests.",
		},
		{
			name: "without status code",
			err: &ClassroomError{
				Kind:    KindResultSetTooLarge,
				Message: "Result set is over 100 pages.",
			},
			expected: "classroom result_set_too_large error: Result set is over 100 pages.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestClassroomError_IsSentinel(t *testing.T) {
	for kind, sentinel := range kindSentinels {
		t.Run(string(kind), func(t *testing.T) {
			err := fmt.Errorf("fetch: %w", &ClassroomError{Kind: kind, Message: "x"})
			if !errors.Is(err, sentinel) {
				t.Errorf("errors.Is(%s, sentinel) = false", kind)
			}
			for otherKind, other := range kindSentinels {
				if otherKind != kind && errors.Is(err, other) {
					t.Errorf("%s error should not match %s sentinel", kind, otherKind)
				}
			}
		})
	}
}

func TestClassroomError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := &ClassroomError{Kind: KindNotLinked, Err: cause}

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestKindOf(t *testing.T) {
	if kind := KindOf(errors.New("plain")); kind != "" {
		t.Errorf("KindOf(plain) = %q, want empty", kind)
	}
	if kind := KindOf(nil); kind != "" {
		t.Errorf("KindOf(nil) = %q, want empty", kind)
	}
	wrapped := fmt.Errorf("outer: %w", &ClassroomError{Kind: KindClassroomDisabled})
	if kind := KindOf(wrapped); kind != KindClassroomDisabled {
		t.Errorf("KindOf(wrapped) = %q, want %q", kind, KindClassroomDisabled)
	}
}
