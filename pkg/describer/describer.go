// Package describer implements the stateless image description call path:
// encode the image, build a two-role chat payload, perform the completion
// with bounded retry, and extract the first choice's text.
package describer

import (
	"context"
	"path/filepath"
	"time"

	"github.com/apex/log"

	"github.com/menta2k/image-describer/pkg/chat"
	"github.com/menta2k/image-describer/pkg/client"
	"github.com/menta2k/image-describer/pkg/encoding"
	"github.com/menta2k/image-describer/pkg/processing"
)

// Defaults for the completion tunables.
const (
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.1
	DefaultMaxAttempts = 3
)

// Source identifies one image to analyze, either by file path or as an
// in-memory byte buffer. Bytes win when both are set.
type Source struct {
	Name string
	Path string
	Data []byte
}

// FromFile builds a Source backed by a file on disk.
func FromFile(path string) Source {
	return Source{Name: filepath.Base(path), Path: path}
}

// FromBytes builds a Source backed by an in-memory buffer.
func FromBytes(name string, data []byte) Source {
	return Source{Name: name, Data: data}
}

func (s Source) bytes() ([]byte, error) {
	if s.Data != nil {
		return s.Data, nil
	}
	return encoding.ReadFile(s.Path)
}

// Options holds the completion tunables. Zero values fall back to the
// package defaults.
type Options struct {
	// Model is the deployment or model identifier passed to the backend.
	Model string
	// MaxTokens caps the completion length.
	MaxTokens int
	// Temperature controls response creativity. Zero means
	// DefaultTemperature; an exact temperature of 0 cannot be requested.
	Temperature float64
	// MaxAttempts bounds the retry loop, first attempt included.
	MaxAttempts int
	// MimeType overrides the data URL MIME hint embedded in requests.
	MimeType string
	// SendSize limits the long side of the image sent to the model, in
	// pixels. 0 sends the original bytes untouched.
	SendSize int
}

func (o Options) withDefaults() Options {
	if o.MaxTokens == 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Temperature == 0 {
		o.Temperature = DefaultTemperature
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

// Request carries the inputs for one analysis call.
type Request struct {
	Source  Source
	Prompts chat.PromptPair
	// NoSystemPrompt omits the system message instead of using the default
	// persona when Prompts.System is blank.
	NoSystemPrompt bool
}

// Result records the outcome for one image in a batch.
type Result struct {
	Index   int    `json:"index"`
	Name    string `json:"name,omitempty"`
	Success bool   `json:"success"`
	Text    string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Describer performs stateless image analysis through an injected transport.
// No conversation history is retained between calls, so a single Describer is
// safe to share across independent callers.
type Describer struct {
	completer client.ChatCompleter
	opts      Options
	sleep     func(time.Duration)
}

// New creates a Describer using the given transport and options.
func New(completer client.ChatCompleter, opts Options) *Describer {
	return &Describer{
		completer: completer,
		opts:      opts.withDefaults(),
		sleep:     time.Sleep,
	}
}

// Options returns the effective tunables.
func (d *Describer) Options() Options {
	return d.opts
}

// Describe analyzes one image and returns the model's textual description.
func (d *Describer) Describe(ctx context.Context, req Request) (string, error) {
	data, err := req.Source.bytes()
	if err != nil {
		return "", err
	}

	encoding.LogInfo(req.Source.Name, data)

	if d.opts.SendSize > 0 {
		prepared, err := processing.PrepareForModel(data, d.opts.SendSize)
		if err != nil {
			log.WithField("image", req.Source.Name).Debugf("image prep skipped: %v", err)
		} else {
			data = prepared
		}
	}

	messages := chat.BuildMessages(req.Prompts, encoding.EncodeBytes(data), chat.BuildOptions{
		MimeType:       d.opts.MimeType,
		NoSystemPrompt: req.NoSystemPrompt,
	})

	resp, err := d.callWithRetry(ctx, &chat.CompletionRequest{
		Model:       d.opts.Model,
		Messages:    messages,
		MaxTokens:   d.opts.MaxTokens,
		Temperature: d.opts.Temperature,
	})
	if err != nil {
		return "", err
	}

	return ExtractText(resp)
}

// DescribeAll analyzes images strictly one at a time and collects per-item
// outcomes in order. A failing image never aborts the rest of the batch.
func (d *Describer) DescribeAll(ctx context.Context, sources []Source, prompts chat.PromptPair) []Result {
	results := make([]Result, 0, len(sources))
	for i, src := range sources {
		text, err := d.Describe(ctx, Request{Source: src, Prompts: prompts})
		if err != nil {
			log.WithField("image", src.Name).Errorf("failed to analyze image %d: %v", i, err)
			results = append(results, Result{Index: i, Name: src.Name, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, Result{Index: i, Name: src.Name, Success: true, Text: text})
	}
	return results
}

// TestConnection performs a minimal text-only completion to verify the
// backend is reachable and the credentials work.
func (d *Describer) TestConnection(ctx context.Context) bool {
	_, err := d.completer.Complete(ctx, &chat.CompletionRequest{
		Model: d.opts.Model,
		Messages: []chat.Message{
			{Role: "user", Content: "Hello"},
		},
		MaxTokens: 10,
	})
	if err != nil {
		log.Errorf("connection test failed: %v", err)
		return false
	}
	log.Info("connection test successful")
	return true
}

// callWithRetry performs the completion with bounded exponential backoff.
// The wait before retrying attempt k (0-indexed) is 2^k + 1 seconds, so 2s
// then 3s for the default budget of three attempts. Failures on non-final
// attempts are logged and swallowed.
func (d *Describer) callWithRetry(ctx context.Context, req *chat.CompletionRequest) (*chat.CompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt < d.opts.MaxAttempts; attempt++ {
		resp, err := d.completer.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == d.opts.MaxAttempts-1 {
			break
		}

		wait := time.Duration(1<<uint(attempt)+1) * time.Second
		log.Warnf("attempt %d failed, retrying in %s: %v", attempt+1, wait, err)
		d.sleep(wait)
	}

	return nil, &TransportError{Attempts: d.opts.MaxAttempts, Err: lastErr}
}

// ExtractText pulls the first choice's message text out of a completion
// response. A response with no choices or no text yields ErrEmptyResponse.
func ExtractText(resp *chat.CompletionResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := resp.Choices[0].Message.MessageText()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
