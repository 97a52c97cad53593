package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const maxPromptText = 4000

// LLMOptions configures an LLMGenerator
type LLMOptions struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	Client      *http.Client
	Logger      logrus.FieldLogger
}

// LLMGenerator asks an OpenAI-compatible chat completion endpoint for
// optimized metadata
type LLMGenerator struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
	logger      logrus.FieldLogger
}

// NewLLMGenerator creates an LLMGenerator
func NewLLMGenerator(opts LLMOptions) *LLMGenerator {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LLMGenerator{
		endpoint:    strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		apiKey:      opts.APIKey,
		model:       opts.Model,
		temperature: opts.Temperature,
		client:      client,
		logger:      logger.WithField("component", "suggest"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// llmSuggestions is the JSON shape the model is asked to produce
type llmSuggestions struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	H1                 string   `json:"h1"`
	H2s                []string `json:"h2s"`
	H3s                []string `json:"h3s"`
	H4s                []string `json:"h4s"`
	TitleContext       string   `json:"title_context"`
	DescriptionContext string   `json:"description_context"`
	H1Context          string   `json:"h1_context"`
	H2Context          string   `json:"h2_context"`
	H3Context          string   `json:"h3_context"`
	H4Context          string   `json:"h4_context"`
}

// Suggest sends the page fields to the model and parses its JSON answer
func (g *LLMGenerator) Suggest(ctx context.Context, req Request) (*Suggestions, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are an SEO specialist. Answer with JSON only."},
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature: g.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	log := g.logger.WithFields(logrus.Fields{"url": req.URL, "model": g.model})
	log.Debug("requesting suggestions")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProvider, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Warn("suggestion provider returned an error")
		return nil, fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrProvider)
	}

	var parsed llmSuggestions
	content := stripFences(chat.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("%w: model answer is not valid JSON: %v", ErrProvider, err)
	}

	out := &Suggestions{
		Title:              strings.TrimSpace(parsed.Title),
		Description:        strings.TrimSpace(parsed.Description),
		H1:                 strings.TrimSpace(parsed.H1),
		H2s:                parsed.H2s,
		H3s:                parsed.H3s,
		H4s:                parsed.H4s,
		TitleContext:       parsed.TitleContext,
		DescriptionContext: parsed.DescriptionContext,
		H1Context:          parsed.H1Context,
		H2Context:          parsed.H2Context,
		H3Context:          parsed.H3Context,
		H4Context:          parsed.H4Context,
	}
	out.fillDefaults()
	return out, nil
}

// stripFences removes a surrounding markdown code block, if any
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func buildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("Improve the SEO metadata of the page below.\n\n")
	fmt.Fprintf(&sb, "URL: %s\n", req.URL)
	fmt.Fprintf(&sb, "Title: %s\n", req.Title)
	fmt.Fprintf(&sb, "Description: %s\n", req.Description)
	fmt.Fprintf(&sb, "H1: %s\n", req.H1)
	writeList(&sb, "H2", req.H2s)
	writeList(&sb, "H3", req.H3s)
	writeList(&sb, "H4", req.H4s)
	if req.Text != "" {
		text := req.Text
		if len(text) > maxPromptText {
			text = strings.ToValidUTF8(text[:maxPromptText], "")
		}
		fmt.Fprintf(&sb, "\nVisible text:\n%s\n", text)
	}
	sb.WriteString(`
Rules:
- title 30-60 characters, description 120-160 characters
- one suggestion per existing heading, same order
- one short explanation per field; heading explanations cover the whole list

Return ONLY valid JSON (no markdown code blocks):
{"title":"","description":"","h1":"","h2s":[],"h3s":[],"h4s":[],
 "title_context":"","description_context":"","h1_context":"",
 "h2_context":"","h3_context":"","h4_context":""}
`)
	return sb.String()
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(sb, "%s: (none)\n", label)
		return
	}
	fmt.Fprintf(sb, "%s:\n", label)
	for i, item := range items {
		fmt.Fprintf(sb, "  %d. %s\n", i+1, item)
	}
}
