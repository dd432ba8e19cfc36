// Package keywords turns narration text into ranked stock-media search
// terms using an OpenAI-compatible chat endpoint. The LLM is consumed
// only as text -> []string; callers fall back to RawTokens when the
// call fails or returns nothing.
package keywords

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"article-video-pipeline/config"
)

const promptTemplate = `Generate %d search terms for stock videos that would visually represent this script segment.

Rules:
1. Return ONLY a JSON array of strings, nothing else.
2. Each search term is 1-3 words, in English.
3. Terms describe concrete visual scenes, objects or actions, not abstract ideas.

Script segment:
%s`

var jsonArrayRe = regexp.MustCompile(`(?s)\[.*?\]`)

// Fixed seed so repeated runs over the same segment text get the same
// terms, which keeps cache keys and clip selection stable.
const termSeed = 42

// Generator calls the configured chat model for search terms.
type Generator struct {
	client    *openai.Client
	model     string
	amount    int
	maxTokens int
}

// New creates a Generator from the keywords config.
func New(cfg config.KeywordsConfig) *Generator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	return &Generator{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		amount:    cfg.Amount,
		maxTokens: cfg.MaxTokens,
	}
}

// SearchTerms returns up to the configured number of ranked terms for
// the segment text. The request is retried a few times before giving
// up; an empty result with nil error never happens.
func (g *Generator) SearchTerms(ctx context.Context, text string) ([]string, error) {
	seed := termSeed
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(promptTemplate, g.amount, text)},
		},
		MaxTokens: g.maxTokens,
		Seed:      &seed,
	}

	const maxRetries = 3
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		resp, err := g.client.CreateChatCompletion(callCtx, req)
		cancel()
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[keywords] request failed (attempt %d/%d): %v", attempt, maxRetries, err)
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("empty completion")
			continue
		}
		terms := ParseTerms(resp.Choices[0].Message.Content, g.amount)
		if len(terms) == 0 {
			return nil, fmt.Errorf("no terms parsed from completion %q", resp.Choices[0].Message.Content)
		}
		return terms, nil
	}
	return nil, fmt.Errorf("keyword generation failed: %w", lastErr)
}

// ParseTerms extracts a JSON string array from model output, tolerating
// surrounding prose and markdown fences.
func ParseTerms(content string, limit int) []string {
	match := jsonArrayRe.FindString(content)
	if match == "" {
		return nil
	}
	var terms []string
	if err := json.Unmarshal([]byte(match), &terms); err != nil {
		return nil
	}
	var out []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
		if len(out) == limit {
			break
		}
	}
	return out
}

var stopwords = map[string]bool{
	"the": true, "and": true, "that": true, "with": true, "this": true,
	"from": true, "have": true, "been": true, "were": true, "they": true,
	"their": true, "would": true, "could": true, "about": true, "which": true,
	"there": true, "when": true, "what": true, "will": true, "more": true,
	"also": true, "into": true, "than": true, "then": true, "them": true,
	"some": true, "such": true, "over": true, "only": true, "very": true,
}

// RawTokens is the degraded-mode keyword source: the longest distinct
// content words of the text itself, best-first.
func RawTokens(text string, limit int) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'()[]{}$#*_-")
		if len(w) < 4 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	sort.SliceStable(tokens, func(i, j int) bool { return len(tokens[i]) > len(tokens[j]) })
	if len(tokens) > limit {
		tokens = tokens[:limit]
	}
	return tokens
}
