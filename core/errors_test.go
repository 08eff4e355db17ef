package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTokenError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"invalid token", NewAPIError(ErrCodeInvalidToken, "invalid credential"), true},
		{"expired token", NewAPIError(ErrCodeExpiredToken, "expired"), true},
		{"wrapped token error", fmt.Errorf("request: %w", NewAPIError(ErrCodeInvalidToken, "bad")), true},
		{"other api error", NewAPIError(ErrCodeInvalidAppID, "bad appid"), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTokenError(tt.err); got != tt.want {
				t.Fatalf("IsTokenError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestAuthErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &AuthError{Err: cause}

	if !errors.Is(err, cause) {
		t.Fatal("AuthError must unwrap to its cause")
	}
	if err.Error() == "" {
		t.Fatal("expected message")
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := NewAPIError(45011, "api minute-quota reach limit")
	want := "wechat api error: [45011] api minute-quota reach limit"
	if err.Error() != want {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
