package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"esagent/internal/model"
	"esagent/internal/query"
)

type ManagerConfig struct {
	Timeout       int
	MaxInputChars int
	EmbedRetries  int
}

// Manager owns the prompts of the pipeline's three language-model roles:
// routing, query generation and answer synthesis, plus question embedding.
type Manager struct {
	router      IGenerator
	generator   IGenerator
	synthesizer IGenerator
	embedder    IEmbedder
	cfg         ManagerConfig
}

func NewManager(
	router IGenerator,
	generator IGenerator,
	synthesizer IGenerator,
	embedder IEmbedder,
	cfg ManagerConfig,
) *Manager {
	if cfg.EmbedRetries <= 0 {
		cfg.EmbedRetries = 3
	}
	return &Manager{
		router:      router,
		generator:   generator,
		synthesizer: synthesizer,
		embedder:    embedder,
		cfg:         cfg,
	}
}

// Embed retries transient provider failures with a short linear backoff
// before giving up.
func (m *Manager) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	var lastErr error
	for attempt := 1; attempt <= m.cfg.EmbedRetries; attempt++ {
		values, err := m.embedder.Embed(ctx, text, taskType)
		if err == nil {
			return values, nil
		}
		lastErr = err
		if attempt == m.cfg.EmbedRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
		}
	}
	return nil, lastErr
}

// RouteDataQuery decides whether a question needs data from the search
// cluster. An unrecognized reply routes to the data path; the validator
// downstream keeps that safe.
func (m *Manager) RouteDataQuery(ctx context.Context, question string) (bool, error) {
	if m.router == nil {
		return true, nil
	}
	prompt := fmt.Sprintf(`You are a routing assistant for a question answering system backed by Elasticsearch.
Decide whether the question below needs data retrieved from the search cluster.
- Answer DATA if it asks about stored documents, counts, logs, records or analytics.
- Answer GENERAL for greetings, explanations and anything needing no stored data.
- Reply with exactly one word: DATA or GENERAL.

QUESTION:
%s`, question)
	reply, err := m.generateText(ctx, m.router, prompt)
	if err != nil {
		return false, err
	}
	if strings.Contains(strings.ToUpper(reply), "GENERAL") {
		return false, nil
	}
	return true, nil
}

// GenerateQuery asks the generator for a structured query. A malformed
// reply gets exactly one stricter retry; a second malformed reply is an
// error, never coerced into a query.
func (m *Manager) GenerateQuery(ctx context.Context, question string, schema *model.SchemaContext) (*model.StructuredQuery, error) {
	if m.generator == nil {
		return nil, fmt.Errorf("generator not configured")
	}
	schemaData, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(`You are an expert Elasticsearch query builder.

Given the following index schemas:
%s

Generate ONLY a JSON object of the form {"index": "<target index>", "query": {<Elasticsearch DSL body>}} that answers:
"%s"

- Use read-only search and aggregation clauses only. Never use write, delete or scripting clauses.
- Use aggregations for counting and analytics questions.
- Include a size limit (default 10) unless the question asks otherwise.
- Use field names exactly as given in the schemas.
- Do NOT include any explanation or text. Just output valid JSON.`, string(schemaData), question)

	raw, err := m.generateText(ctx, m.generator, prompt)
	if err != nil {
		return nil, err
	}
	q, perr := query.ParseGenerated(raw)
	if perr == nil {
		return q, nil
	}
	strict := prompt + "\n\nYour previous reply could not be parsed. Output exactly one JSON object and nothing else: no markdown, no commentary."
	raw, err = m.generateText(ctx, m.generator, strict)
	if err != nil {
		return nil, err
	}
	return query.ParseGenerated(raw)
}

// Synthesize turns execution results back into language. A nil result is
// the general path: the question is answered directly.
func (m *Manager) Synthesize(ctx context.Context, question string, result *model.ExecutionResult) (string, error) {
	if m.synthesizer == nil {
		return "", fmt.Errorf("synthesizer not configured")
	}
	if result == nil {
		prompt := fmt.Sprintf(`You are a helpful assistant for a question answering system backed by Elasticsearch.
Answer the question below directly and concisely. No stored data is needed for it.

QUESTION:
%s`, question)
		return m.generateText(ctx, m.synthesizer, prompt)
	}
	resultData, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf(`The user asked: "%s"

Elasticsearch returned this JSON result:
%s

Convert this into a simple, human-readable natural language answer.
Keep it concise, and only include relevant information.`, question, string(resultData))
	return m.generateText(ctx, m.synthesizer, prompt)
}

func (m *Manager) generateText(ctx context.Context, gen IGenerator, prompt string) (string, error) {
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	resp, err := gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

func (m *Manager) MaxInputChars() int {
	return m.cfg.MaxInputChars
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}
