package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"

	imagedescriber "github.com/menta2k/image-describer"
	"github.com/menta2k/image-describer/internal/config"
	"github.com/menta2k/image-describer/internal/utils"
	"github.com/menta2k/image-describer/pkg/chat"
	"github.com/menta2k/image-describer/pkg/describer"
)

func main() {
	var systemPrompt, userPrompt string
	var endpoint, model, clientID string
	var backend, url string
	var sendSize int
	var useAPIKey, testConnection, verbose bool

	flag.StringVar(&systemPrompt, "system-prompt", "", "custom system prompt to guide the AI's behavior")
	flag.StringVar(&userPrompt, "prompt", "", "custom prompt for image analysis")
	flag.StringVar(&endpoint, "endpoint", "", "Azure OpenAI endpoint URL (overrides AZURE_OPENAI_ENDPOINT)")
	flag.StringVar(&model, "model", "", "deployment/model name (overrides AZURE_OPENAI_DEPLOYMENT_NAME)")
	flag.StringVar(&clientID, "client-id", "", "user-assigned managed identity client ID")
	flag.StringVar(&backend, "backend", "azure", "backend to use: azure, ollama or llamacpp")
	flag.StringVar(&url, "url", "", "local server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	flag.IntVar(&sendSize, "sendsize", 0, "max long side sent to the model (px), 0=original")
	flag.BoolVar(&useAPIKey, "use-api-key", false, "authenticate with an API key instead of managed identity")
	flag.BoolVar(&testConnection, "test-connection", false, "test the connection and exit")
	flag.BoolVar(&verbose, "verbose", false, "enable debug logging")
	flag.Parse()

	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	if flag.NArg() == 0 && !testConnection {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] image.jpg [image2.png ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Fail fast on bad paths before any client construction or network call
	for _, path := range flag.Args() {
		if !utils.FileExists(path) {
			fmt.Fprintf(os.Stderr, "Error: Image file not found: %s\n", path)
			os.Exit(1)
		}
		if !utils.IsImageFile(path) {
			log.Warnf("%s does not look like an image file", path)
		}
	}

	cfg := config.Load()
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if model != "" {
		cfg.DeploymentName = model
	}
	if clientID != "" {
		cfg.ClientID = clientID
	}
	if sendSize > 0 {
		cfg.SendSize = sendSize
	}

	analyzer, err := newAnalyzer(cfg, backend, url, useAPIKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if testConnection {
		for key, value := range analyzer.ServiceInfo() {
			log.Infof("%s: %s", key, value)
		}
		if !analyzer.TestConnection(ctx) {
			fmt.Fprintln(os.Stderr, "Connection test failed")
			os.Exit(1)
		}
		fmt.Println("Connection test successful")
		return
	}

	prompts := chat.PromptPair{System: systemPrompt, User: userPrompt}

	if flag.NArg() == 1 {
		describeOne(ctx, analyzer, flag.Arg(0), prompts)
		return
	}

	sources := make([]describer.Source, 0, flag.NArg())
	for _, path := range flag.Args() {
		sources = append(sources, describer.FromFile(path))
	}

	failed := 0
	for _, result := range analyzer.DescribeAll(ctx, sources, prompts) {
		fmt.Printf("\n==== %s ====\n", result.Name)
		if result.Success {
			fmt.Println(result.Text)
		} else {
			failed++
			fmt.Printf("Error: %s\n", result.Error)
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%d of %d images failed\n", failed, flag.NArg())
		os.Exit(1)
	}
}

func describeOne(ctx context.Context, analyzer *imagedescriber.Analyzer, path string, prompts chat.PromptPair) {
	description, err := analyzer.Describe(ctx, describer.Request{
		Source:  describer.FromFile(path),
		Prompts: prompts,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n==================================================")
	fmt.Println("IMAGE ANALYSIS RESULT")
	fmt.Println("==================================================")
	fmt.Println(description)
	fmt.Println("==================================================")
}

func newAnalyzer(cfg *config.Config, backend, url string, useAPIKey bool) (*imagedescriber.Analyzer, error) {
	switch backend {
	case "azure":
		return imagedescriber.NewAzure(cfg, useAPIKey)
	case "ollama":
		if url == "" {
			url = "http://localhost:11434"
		}
		return imagedescriber.NewOllama(cfg, url)
	case "llamacpp":
		if url == "" {
			url = "http://localhost:8080"
		}
		return imagedescriber.NewLlamaCpp(cfg, url)
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'azure', 'ollama' or 'llamacpp')", backend)
	}
}
