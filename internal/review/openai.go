package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
)

const systemPrompt = "You are an expert software engineer performing a code review. " +
	"Analyze the following code diff for potential bugs, security vulnerabilities, performance issues, and " +
	"best practices violations. Provide your feedback in a concise and clear manner."

const truncationNote = "Note: the diff below was truncated to fit the review size limit, " +
	"so this review can only cover the included portion.\n\n"

const requestTimeout = 60 * time.Second

// OpenAIProvider asks a chat-completion model for a free-text review of a
// diff.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(client *openai.Client, model string) *OpenAIProvider {
	return &OpenAIProvider{client: client, model: model}
}

func (p *OpenAIProvider) Review(ctx context.Context, req Request) (string, error) {
	prompt := fmt.Sprintf("The review is for the following code change:\n\n---\n%s\n---\n", req.Diff)
	if req.Truncated {
		prompt = truncationNote + prompt
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	chatCompletion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		}),
		Model: openai.F(openai.ChatModel(p.model)),
	})
	if err != nil {
		return "", fmt.Errorf("requesting review: %w", err)
	}

	if len(chatCompletion.Choices) == 0 {
		return Placeholder, nil
	}
	content := chatCompletion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return Placeholder, nil
	}
	return content, nil
}
