// Package ollama adapts a local Ollama server as an alternate transport for
// image analysis, mainly for development without an Azure deployment.
package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/image-describer/pkg/chat"
)

// Client wraps the Ollama API client behind the ChatCompleter contract.
type Client struct {
	client *api.Client
}

// NewClient creates a new Ollama client
func NewClient(ollamaURL string) (*Client, error) {
	// Parse the provided URL
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	// Create base URL from the provided URL (removing path like /api/chat)
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	// Create client with the specified URL, ignoring environment
	client := api.NewClient(baseURL, http.DefaultClient)

	return &Client{client: client}, nil
}

// Complete maps an OpenAI-style completion request onto the Ollama chat API
// and wraps the reply back into a one-choice completion response.
func (c *Client) Complete(ctx context.Context, req *chat.CompletionRequest) (*chat.CompletionResponse, error) {
	// Add timeout if context doesn't have one (local models on CPU are slow)
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	options := map[string]any{}
	if req.Temperature != 0 {
		options["temperature"] = req.Temperature
	}
	if req.MaxTokens != 0 {
		options["num_predict"] = req.MaxTokens
	}

	streamFalse := false
	ollamaReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   &streamFalse,
		Options:  options,
	}

	var responseContent string
	err = c.client.Chat(ctx, ollamaReq, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %v", err)
	}

	return &chat.CompletionResponse{
		Model: req.Model,
		Choices: []chat.Choice{
			{
				Index:        0,
				Message:      chat.Message{Role: "assistant", Content: responseContent},
				FinishReason: "stop",
			},
		},
	}, nil
}

// convertMessages flattens OpenAI-style messages into Ollama messages,
// decoding embedded data URL images back to raw bytes.
func convertMessages(messages []chat.Message) ([]api.Message, error) {
	converted := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msg := api.Message{Role: m.Role}

		switch content := m.Content.(type) {
		case string:
			msg.Content = content
		case []chat.ContentPart:
			for _, part := range content {
				switch part.Type {
				case "text":
					msg.Content = part.Text
				case "image_url":
					if part.ImageURL == nil {
						continue
					}
					imgBytes, err := decodeDataURL(part.ImageURL.URL)
					if err != nil {
						return nil, err
					}
					msg.Images = append(msg.Images, api.ImageData(imgBytes))
				}
			}
		default:
			return nil, fmt.Errorf("unsupported message content type %T", m.Content)
		}

		converted = append(converted, msg)
	}
	return converted, nil
}

// decodeDataURL extracts and decodes the base64 payload of a data URL.
func decodeDataURL(dataURL string) ([]byte, error) {
	idx := strings.Index(dataURL, ";base64,")
	if !strings.HasPrefix(dataURL, "data:") || idx < 0 {
		return nil, fmt.Errorf("unsupported image URL: expected a base64 data URL")
	}

	imgBytes, err := base64.StdEncoding.DecodeString(dataURL[idx+len(";base64,"):])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %v", err)
	}
	return imgBytes, nil
}
