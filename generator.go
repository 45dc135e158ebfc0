package pdfquiz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel   = openai.GPT3Dot5Turbo
	DefaultTimeout = 60 * time.Second

	summaryMaxTokens = 1000
	quizMaxTokens    = 2000
	temperature      = 0.7

	summarySystemPrompt = "You are a helpful assistant that creates structured summaries from PDF content."
	quizSystemPrompt    = "You are a helpful assistant that creates educational quiz questions."
)

// placeholderKeys are values that mean the key was never filled in
var placeholderKeys = map[string]bool{
	"unset":                     true,
	"your_openai_api_key_here": true,
}

// GeneratorConfig configures the text generation backend
type GeneratorConfig struct {
	APIKey        string
	Model         string
	BaseURL       string
	Timeout       time.Duration
	MaxInputChars int // 0 means the whole document is sent
}

// Generator produces summaries and quizzes through a chat completion API.
// It never returns an error: any failure resolves to placeholder data.
type Generator struct {
	client        *openai.Client
	model         string
	maxInputChars int
}

// NewGenerator creates a generator. Without a usable API key it runs in demo mode.
func NewGenerator(cfg GeneratorConfig) *Generator {
	g := &Generator{
		model:         cfg.Model,
		maxInputChars: cfg.MaxInputChars,
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if !keyConfigured(cfg.APIKey) {
		return g
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	g.client = openai.NewClientWithConfig(clientCfg)
	return g
}

func keyConfigured(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && !placeholderKeys[key]
}

// Configured reports whether live generation is available
func (g *Generator) Configured() bool {
	return g.client != nil
}

// GenerateSummary summarizes extracted document text into sections
func (g *Generator) GenerateSummary(ctx context.Context, text string) []SummarySection {
	VerboseLog("Generating summary for text: %s", preview(text, 100))

	if !g.Configured() {
		Logger().Warn("OpenAI API key not set, using placeholder summary")
		return PlaceholderSummary()
	}

	prompt := buildSummaryPrompt(g.truncate(text))
	content, err := g.complete(ctx, "SummaryGenerator", summarySystemPrompt, prompt, summaryMaxTokens)
	if err != nil {
		Logger().Warnw("Error generating summary, using placeholder", "error", err)
		if tl := TranscriptFrom(ctx); tl != nil {
			tl.LogFallback("SummaryGenerator", err.Error())
		}
		return PlaceholderSummary()
	}
	return ParseSummary(content)
}

// GenerateQuiz builds multiple choice questions from a summary
func (g *Generator) GenerateQuiz(ctx context.Context, summary []SummarySection) []QuizQuestion {
	VerboseLog("Generating quiz based on summary with %d sections", len(summary))

	if !g.Configured() {
		Logger().Warn("OpenAI API key not set, using placeholder questions")
		return PlaceholderQuestions()
	}

	prompt := buildQuizPrompt(FormatSummary(summary))
	content, err := g.complete(ctx, "QuizGenerator", quizSystemPrompt, prompt, quizMaxTokens)
	if err != nil {
		Logger().Warnw("Error generating quiz, using placeholder", "error", err)
		if tl := TranscriptFrom(ctx); tl != nil {
			tl.LogFallback("QuizGenerator", err.Error())
		}
		return PlaceholderQuestions()
	}
	return ParseQuiz(content)
}

func (g *Generator) complete(ctx context.Context, module, system, prompt string, maxTokens int) (string, error) {
	tl := TranscriptFrom(ctx)
	if tl != nil {
		tl.LogLLMRequest(module, prompt)
	}

	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: temperature,
			MaxTokens:   maxTokens,
		},
	)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("OpenAI API error: %d: %w", apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("failed to call chat completion: %w", err)
	}

	VerboseLog("Received response from %s with %d choices", g.model, len(resp.Choices))
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if tl != nil {
		tl.LogLLMResponse(module, content)
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty message content in response")
	}
	return content, nil
}

func (g *Generator) truncate(text string) string {
	if g.maxInputChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= g.maxInputChars {
		return text
	}
	VerboseLog("Truncating input from %d to %d characters", len(runes), g.maxInputChars)
	return string(runes[:g.maxInputChars])
}

func buildSummaryPrompt(text string) string {
	var sb strings.Builder

	sb.WriteString("Analyze the following text extracted from a PDF and create a structured summary.\n")
	sb.WriteString("Format the summary into 3-5 sections with titles and bullet points.\n")
	sb.WriteString("Each section should have a clear title and 3-5 concise bullet points highlighting key information.\n\n")
	sb.WriteString("Text to summarize:\n")
	sb.WriteString(text)

	return sb.String()
}

func buildQuizPrompt(summaryText string) string {
	var sb strings.Builder

	sb.WriteString("Based on the following summary, create 10 multiple-choice quiz questions.\n")
	sb.WriteString("Each question should have 4 options with only 1 correct answer.\n")
	sb.WriteString("Include an explanation for the correct answer.\n\n")
	sb.WriteString("Format each question as follows:\n")
	sb.WriteString("1. Question: [question text]\n")
	sb.WriteString("2. Options:\n")
	sb.WriteString("   A. [option 1]\n")
	sb.WriteString("   B. [option 2]\n")
	sb.WriteString("   C. [option 3]\n")
	sb.WriteString("   D. [option 4]\n")
	sb.WriteString("3. Correct Answer: [A, B, C, or D]\n")
	sb.WriteString("4. Explanation: [brief explanation]\n\n")
	sb.WriteString("Summary:\n")
	sb.WriteString(summaryText)

	return sb.String()
}

func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
