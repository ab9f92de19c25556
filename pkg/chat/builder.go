package chat

import (
	"fmt"
	"strings"
)

// DefaultSystemPrompt guides the model when the caller supplies no system prompt.
const DefaultSystemPrompt = "You are an expert image analyst. Provide detailed, accurate descriptions of images. " +
	"Be thorough but concise in your analysis."

// DefaultUserPrompt is the analysis instruction used when the caller supplies no prompt.
const DefaultUserPrompt = "Analyze this image and provide a detailed description. " +
	"Include information about objects, people, setting, colors, mood, " +
	"and any text visible in the image."

// DefaultMimeType labels the embedded image payload. Most vision backends accept
// a mismatched hint, so the payload is labeled image/jpeg regardless of the
// actual source format unless the caller overrides it.
const DefaultMimeType = "image/jpeg"

// DefaultDetail is the image detail level requested from the model.
const DefaultDetail = "high"

// PromptPair carries the optional system and user prompts for one analysis.
// Blank or whitespace-only values are treated the same as absent ones.
type PromptPair struct {
	System string
	User   string
}

// BuildOptions control how messages are assembled.
type BuildOptions struct {
	// MimeType overrides the data URL MIME hint. Empty means DefaultMimeType.
	MimeType string
	// Detail overrides the requested image detail level. Empty means DefaultDetail.
	Detail string
	// NoSystemPrompt omits the system message entirely when the caller
	// supplies no system prompt, instead of falling back to the default one.
	NoSystemPrompt bool
}

// BuildMessages assembles the message list for one stateless image analysis:
// at most one system message followed by exactly one user message carrying the
// prompt text and the base64 image payload as a data URL. Identical inputs
// produce an identical message list.
func BuildMessages(prompts PromptPair, encodedImage string, opts BuildOptions) []Message {
	mimeType := opts.MimeType
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	detail := opts.Detail
	if detail == "" {
		detail = DefaultDetail
	}

	var messages []Message

	systemText := strings.TrimSpace(prompts.System)
	if systemText == "" && !opts.NoSystemPrompt {
		systemText = DefaultSystemPrompt
	}
	if systemText != "" {
		messages = append(messages, Message{
			Role:    "system",
			Content: systemText,
		})
	}

	userText := strings.TrimSpace(prompts.User)
	if userText == "" {
		userText = DefaultUserPrompt
	}

	messages = append(messages, Message{
		Role: "user",
		Content: []ContentPart{
			{
				Type: "text",
				Text: userText,
			},
			{
				Type: "image_url",
				ImageURL: &ImageURL{
					URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, encodedImage),
					Detail: detail,
				},
			},
		},
	})

	return messages
}
