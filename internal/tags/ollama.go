package tags

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

// OllamaProvider calls a local Ollama instance to suggest tags.
type OllamaProvider struct {
	client *resty.Client
	model  string
}

// NewOllamaProvider creates a provider against the given base URL
// (e.g. http://localhost:11434).
func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(5 * time.Minute)

	return &OllamaProvider{client: c, model: modelName}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

// Generate asks the model for comma-separated tags and parses its answer.
func (p *OllamaProvider) Generate(ctx context.Context, e *model.Entry, pastPhoto bool) ([]string, error) {
	reqBody := generateRequest{Model: p.model, Prompt: buildPrompt(e, pastPhoto), Stream: false}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(&reqBody).
		Post("/api/generate")
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		// Ollama answers non-200 when the model isn't present. Pull it
		// best-effort and retry once.
		_ = p.pullModel(ctx)
		resp2, err2 := p.client.R().SetContext(ctx).SetBody(&reqBody).Post("/api/generate")
		if err2 != nil || resp2.StatusCode() != http.StatusOK {
			if err2 != nil {
				return nil, fmt.Errorf("ollama status %d: %s (after pull attempt; err=%v)", resp.StatusCode(), resp.String(), err2)
			}
			return nil, fmt.Errorf("ollama status %d: %s (after pull attempt)", resp2.StatusCode(), resp2.String())
		}
		resp = resp2
	}

	var gr generateResponse
	if err := json.Unmarshal(resp.Body(), &gr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return ParseTagList(gr.Response), nil
}

// pullModel tries to pull the model via Ollama API; best-effort and silent on failure
func (p *OllamaProvider) pullModel(ctx context.Context) error {
	body := map[string]string{"name": p.model}
	_, _ = p.client.R().SetContext(ctx).SetBody(body).Post("/api/pull")
	return nil
}

// HealthPing reports whether the Ollama server answers. Implements
// health.HealthPinger; generation is not exercised, only reachability.
func (p *OllamaProvider) HealthPing(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get("/api/version")
	if err != nil {
		return fmt.Errorf("ollama ping: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("ollama ping: status %d", resp.StatusCode())
	}
	return nil
}

func buildPrompt(e *model.Entry, pastPhoto bool) string {
	var b strings.Builder
	b.WriteString("Suggest up to 8 short tags for this diary entry. ")
	b.WriteString("Answer with a comma-separated list only.\n\n")
	fmt.Fprintf(&b, "Date: %s\n", e.Date.Format("2006-01-02"))
	if pastPhoto {
		b.WriteString("This entry was created retroactively from an old photo.\n")
	}
	if e.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", e.Title)
	}
	if e.Location != nil && *e.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", *e.Location)
	}
	if e.Content != "" {
		fmt.Fprintf(&b, "Text: %s\n", e.Content)
	}
	return b.String()
}

// ParseTagList splits a model answer on commas and newlines, trims
// decoration and deduplicates, keeping at most MaxTags.
func ParseTagList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, MaxTags)
	for _, f := range fields {
		tag := strings.TrimSpace(f)
		tag = strings.TrimPrefix(tag, "#")
		tag = strings.Trim(tag, ".")
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}
