// Package imagedescriber provides stateless image description using hosted
// multimodal chat-completion deployments.
//
// An image plus a text prompt is sent to a vision-capable model (an Azure
// OpenAI deployment, or a local Ollama server for development) and the
// textual description comes back. Each call is independent: no conversation
// history is retained between images.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//		"os"
//
//		"github.com/menta2k/image-describer/pkg/azure"
//		"github.com/menta2k/image-describer/pkg/describer"
//	)
//
//	func main() {
//		client, err := azure.NewClientWithKey(
//			os.Getenv("AZURE_OPENAI_ENDPOINT"), "gpt-4o", "", os.Getenv("AZURE_OPENAI_API_KEY"))
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		d := describer.New(client, describer.Options{Model: "gpt-4o"})
//		text, err := d.Describe(context.Background(), describer.Request{
//			Source: describer.FromFile("photo.jpg"),
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		fmt.Println(text)
//	}
//
// The package consists of four main components:
//
// 1. Encoding (pkg/encoding): reads image bytes and produces the base64 form
// 2. Chat (pkg/chat): assembles the two-role message payload
// 3. Describer (pkg/describer): the retrying call loop and text extraction
// 4. Transports (pkg/azure, pkg/ollama): interchangeable backends behind one interface
//
// Authentication against Azure is either a static API key or a managed
// identity bearer token, selected once at construction. The analysis path
// never sees credentials.
package imagedescriber

import (
	"fmt"

	"github.com/menta2k/image-describer/internal/config"
	"github.com/menta2k/image-describer/pkg/azure"
	"github.com/menta2k/image-describer/pkg/client"
	"github.com/menta2k/image-describer/pkg/credentials"
	"github.com/menta2k/image-describer/pkg/describer"
	"github.com/menta2k/image-describer/pkg/llamacpp"
	"github.com/menta2k/image-describer/pkg/ollama"
)

// Version of the image describer library
const Version = "1.0.0"

// Analyzer bundles a configured describer with enough context to report how
// it was wired.
type Analyzer struct {
	*describer.Describer

	cfg     *config.Config
	service string
	auth    string
}

// NewAzure creates an analyzer backed by an Azure OpenAI deployment. With
// useAPIKey set the static key from configuration authenticates requests;
// otherwise a managed identity bearer token is fetched per request,
// optionally pinned to the configured client ID.
func NewAzure(cfg *config.Config, useAPIKey bool) (*Analyzer, error) {
	if err := cfg.Validate(useAPIKey); err != nil {
		return nil, err
	}

	var transport client.ChatCompleter
	var auth string
	var err error

	if useAPIKey {
		auth = "API Key"
		transport, err = azure.NewClientWithKey(cfg.Endpoint, cfg.DeploymentName, cfg.APIVersion, cfg.APIKey)
	} else {
		auth = "Managed Identity"
		tokens := credentials.NewManagedIdentity(credentials.WithClientID(cfg.ClientID))
		transport, err = azure.NewClientWithToken(cfg.Endpoint, cfg.DeploymentName, cfg.APIVersion, tokens)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Azure OpenAI client: %w", err)
	}

	return &Analyzer{
		Describer: describer.New(transport, optionsFromConfig(cfg)),
		cfg:       cfg,
		service:   "Azure OpenAI",
		auth:      auth,
	}, nil
}

// NewOllama creates an analyzer backed by a local Ollama server.
func NewOllama(cfg *config.Config, serverURL string) (*Analyzer, error) {
	transport, err := ollama.NewClient(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Ollama client: %w", err)
	}

	return &Analyzer{
		Describer: describer.New(transport, optionsFromConfig(cfg)),
		cfg:       cfg,
		service:   "Ollama",
		auth:      "None",
	}, nil
}

// NewLlamaCpp creates an analyzer backed by a llama.cpp server's
// OpenAI-compatible endpoint.
func NewLlamaCpp(cfg *config.Config, serverURL string) (*Analyzer, error) {
	transport, err := llamacpp.NewClient(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llama.cpp client: %w", err)
	}

	return &Analyzer{
		Describer: describer.New(transport, optionsFromConfig(cfg)),
		cfg:       cfg,
		service:   "llama.cpp",
		auth:      "None",
	}, nil
}

// ServiceInfo returns a summary of the service configuration for display.
func (a *Analyzer) ServiceInfo() map[string]string {
	clientID := a.cfg.ClientID
	if clientID == "" {
		clientID = "System-assigned"
	}
	return map[string]string{
		"service":         a.service,
		"endpoint":        a.cfg.Endpoint,
		"deployment_name": a.cfg.DeploymentName,
		"api_version":     a.cfg.APIVersion,
		"authentication":  a.auth,
		"client_id":       clientID,
	}
}

func optionsFromConfig(cfg *config.Config) describer.Options {
	return describer.Options{
		Model:       cfg.DeploymentName,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		MaxAttempts: cfg.MaxAttempts,
		SendSize:    cfg.SendSize,
	}
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
