package embedding

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestClassifyProviderError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"rate limited", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, true},
		{"server error", &openai.APIError{HTTPStatusCode: http.StatusInternalServerError}, true},
		{"bad request", &openai.APIError{HTTPStatusCode: http.StatusBadRequest}, false},
		{"unauthorized", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized}, false},
		{"payload too large", &openai.APIError{HTTPStatusCode: http.StatusRequestEntityTooLarge}, false},
		{"connection failure", errors.New("dial tcp: connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyProviderError(tt.err)
			if got.Transient != tt.transient {
				t.Errorf("transient = %v, want %v", got.Transient, tt.transient)
			}
			if got.Unwrap() == nil {
				t.Error("classified error should wrap the cause")
			}
		})
	}
}

func TestNewOpenAIEmbedderRejectsZeroDimensions(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{Model: "text-embedding-3-small"})
	if err == nil {
		t.Fatal("expected error for zero dimensions")
	}
}
