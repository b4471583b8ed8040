package ai

import (
	"context"
	"errors"
)

// Message roles understood by every provider.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ErrEmptyCompletion indicates the provider answered without any usable content.
var ErrEmptyCompletion = errors.New("no content returned from model")

// Image is an inline image attached to a user message.
type Image struct {
	MIMEType string
	Data     []byte
}

// Message is a single chat turn. Images are only honoured on user messages.
type Message struct {
	Role    string
	Content string
	Images  []Image
}

// CompletionRequest describes a single chat completion call.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	JSON        bool
	Temperature *float32
	MaxTokens   int
}

// CompletionResponse carries the text produced by the model and token accounting.
type CompletionResponse struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Client is a chat-completion capable language model backend.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// Temperature returns a pointer for CompletionRequest.Temperature.
func Temperature(v float32) *float32 {
	return &v
}
