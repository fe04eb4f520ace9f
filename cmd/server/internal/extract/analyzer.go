// Package extract decides whether transcript windows contain actionable
// content and turns them into deduplicated action items. Extraction is
// best-effort: failures are logged and never surface to participants.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Item is one actionable item returned by the extraction capability.
type Item struct {
	Description string `json:"description"`
	Assignee    string `json:"assignee,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
}

// Analyzer is the text-analysis capability contract: a transcript window plus
// prior context in, zero or more structured items out.
type Analyzer interface {
	Extract(ctx context.Context, window, priorContext string) ([]Item, error)
	Name() string
}

// HTTPAnalyzer calls an external extraction service.
type HTTPAnalyzer struct {
	apiURL     string
	httpClient *http.Client
}

// NewHTTPAnalyzer creates a client for the extraction service at apiURL.
func NewHTTPAnalyzer(apiURL string) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: time.Minute,
		},
	}
}

type extractRequest struct {
	Window  string `json:"window"`
	Context string `json:"context,omitempty"`
}

type extractResponse struct {
	Items []Item `json:"items"`
}

// Extract posts the window to POST {apiURL}/api/v1/extract.
func (h *HTTPAnalyzer) Extract(ctx context.Context, window, priorContext string) ([]Item, error) {
	payload, err := json.Marshal(extractRequest{Window: window, Context: priorContext})
	if err != nil {
		return nil, fmt.Errorf("marshal extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.apiURL+"/api/v1/extract", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("extraction service returned HTTP %d: %s", resp.StatusCode, string(b))
	}

	var decoded extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	return decoded.Items, nil
}

// Name identifies this implementation.
func (h *HTTPAnalyzer) Name() string {
	return "http-analyzer"
}

// HeuristicAnalyzer is the fallback when no extraction service is configured.
// It promotes the sentence that tripped the pre-check into a bare item, with
// the matched deadline phrase attached when present. Quality is deliberately
// modest; it keeps the feature alive in dev and degraded deployments.
type HeuristicAnalyzer struct{}

// NewHeuristicAnalyzer creates the fallback analyzer.
func NewHeuristicAnalyzer() *HeuristicAnalyzer {
	return &HeuristicAnalyzer{}
}

// Extract scans sentences of the window for actionable phrasing.
func (a *HeuristicAnalyzer) Extract(ctx context.Context, window, priorContext string) ([]Item, error) {
	var items []Item
	for _, sentence := range splitSentences(window) {
		if !looksActionable(sentence) {
			continue
		}
		item := Item{Description: sentence}
		if m := deadlineRe.FindString(sentence); m != "" {
			item.Deadline = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(m), "by "))
		}
		items = append(items, item)
	}
	return items, nil
}

// Name identifies this implementation.
func (a *HeuristicAnalyzer) Name() string {
	return "heuristic-fallback"
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
