// Package textgen generates SEO metadata and descriptive copy for concerts
// through an OpenAI-compatible chat completions API.
package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"conciertapp/internal/metrics"
	"conciertapp/internal/textnorm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

var (
	// ErrNotConfigured means no API key was supplied.
	ErrNotConfigured = errors.New("text generation api key not configured")
	// ErrEmptyOutput is returned when the model answers with nothing usable.
	ErrEmptyOutput = errors.New("text generation returned empty output")
)

const (
	infoSystem = "Eres un experto en SEO y en copywriting, con experiencia en el uso de keywords al escribir blogs de música."
	seoSystem  = "Eres un experto en SEO y en copywriting, con experiencia en definir meta-tags eficaces para posicionarse en buscadores. " +
		"Necesitas posicionar la web app conciert.app (Conciertapp) e incentivar el uso de sus features, como el acceso rápido a la información de cada evento y a sus setlists."
)

// ConcertBrief is the concert data a prompt is built from.
type ConcertBrief struct {
	Title   string
	Date    time.Time
	Venue   string
	Artists []string
}

// SEO is the structured metadata returned by GenerateSEO.
type SEO struct {
	MetaTitle       string   `json:"metaTitle"`
	MetaDescription string   `json:"metaDescription"`
	Keywords        []string `json:"keywords"`
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client generates text. The zero value is not usable; call New.
type Client struct {
	chat  chatCompleter
	model string
}

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// New builds a client. A missing API key yields a client whose calls fail
// with ErrNotConfigured.
func New(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	if cfg.APIKey == "" {
		return &Client{model: model}
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{chat: openai.NewClientWithConfig(oc), model: model}
}

// GenerateInfo writes a descriptive text for the concert in Spanish.
// Paragraphs are separated by blank lines.
func (c *Client) GenerateInfo(ctx context.Context, brief ConcertBrief, now time.Time) (string, error) {
	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: infoSystem},
			{Role: openai.ChatMessageRoleUser, Content: InfoPrompt(brief, now)},
		},
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

var seoSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"metaTitle": {
			Type:        jsonschema.String,
			Description: "Título optimizado para SEO (55-60 caracteres). Considera el nombre de la app: Conciertapp o Conciert.app",
		},
		"metaDescription": {
			Type:        jsonschema.String,
			Description: "Descripción optimizada para SEO (150-160 caracteres)",
		},
		"keywords": {
			Type:        jsonschema.Array,
			Description: "Keywords del concierto, de los artistas y del posicionamiento de la webapp",
			Items:       &jsonschema.Definition{Type: jsonschema.String},
		},
	},
	Required:             []string{"metaTitle", "metaDescription", "keywords"},
	AdditionalProperties: false,
}

// GenerateSEO produces schema-constrained SEO metadata for the concert.
func (c *Client) GenerateSEO(ctx context.Context, brief ConcertBrief) (SEO, error) {
	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: seoSystem},
			{Role: openai.ChatMessageRoleUser, Content: SEOPrompt(brief)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "concert_seo",
				Schema: &seoSchema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return SEO{}, err
	}

	var out SEO
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return SEO{}, fmt.Errorf("decode seo output: %w", err)
	}

	out.MetaTitle = strings.TrimSpace(out.MetaTitle)
	out.MetaDescription = strings.TrimSpace(out.MetaDescription)
	out.Keywords = cleanKeywords(out.Keywords)
	if out.MetaTitle == "" || out.MetaDescription == "" || len(out.Keywords) == 0 {
		return SEO{}, ErrEmptyOutput
	}
	return out, nil
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if c.chat == nil {
		return "", ErrNotConfigured
	}

	resp, err := c.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues("openai", "failure").Inc()
		return "", fmt.Errorf("chat completion: %w", err)
	}
	metrics.ProviderRequests.WithLabelValues("openai", "success").Inc()

	if len(resp.Choices) == 0 {
		return "", ErrEmptyOutput
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyOutput
	}
	return content, nil
}

func cleanKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		key := textnorm.Key(k)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
	}
	return out
}
