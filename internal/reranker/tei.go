package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// TEIReranker scores documents via a text-embeddings-inference rerank
// endpoint running a cross-encoder model.
type TEIReranker struct {
	baseURL string
	model   string
	client  *http.Client
	metrics *Metrics
}

// NewTEIReranker creates a TEI-backed reranker and probes the endpoint so a
// dead service is caught at startup instead of on the first query.
func NewTEIReranker(cfg Config) (*TEIReranker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &TEIReranker{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: 30 * time.Second},
		metrics: NewMetrics(),
	}

	if err := r.probe(); err != nil {
		return nil, fmt.Errorf("%w: probing %s: %v", ErrModelUnavailable, r.baseURL, err)
	}
	return r, nil
}

func (r *TEIReranker) probe() error {
	resp, err := r.client.Get(r.baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// rerankRequest is the request body for the TEI rerank endpoint.
type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResponse struct {
	Index int     `json:"index"`
	Score float32 `json:"score"`
}

// Rerank scores every document against the query.
func (r *TEIReranker) Rerank(ctx context.Context, query string, documents []string) ([]Result, error) {
	start := time.Now()
	var rerankErr error
	defer func() {
		r.metrics.RecordRerank(ctx, r.model, time.Since(start), len(documents), rerankErr)
	}()

	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Query: query, Texts: documents})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		rerankErr = fmt.Errorf("%w: %v", ErrRerankFailed, err)
		return nil, rerankErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		rerankErr = fmt.Errorf("%w: status %d: %s", ErrRerankFailed, resp.StatusCode, string(respBody))
		return nil, rerankErr
	}

	var scored []rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&scored); err != nil {
		rerankErr = fmt.Errorf("decoding response: %w", err)
		return nil, rerankErr
	}
	if len(scored) != len(documents) {
		rerankErr = fmt.Errorf("%w: got %d scores for %d documents", ErrRerankFailed, len(scored), len(documents))
		return nil, rerankErr
	}

	results := make([]Result, len(scored))
	for i, s := range scored {
		if s.Index < 0 || s.Index >= len(documents) {
			rerankErr = fmt.Errorf("%w: score references document %d of %d", ErrRerankFailed, s.Index, len(documents))
			return nil, rerankErr
		}
		results[i] = Result{Index: s.Index, Score: s.Score}
	}
	// TEI returns scores ordered already; sort anyway so ordering is a
	// guarantee of this package, not of the server.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

// ModelID returns the cross-encoder model identifier.
func (r *TEIReranker) ModelID() string { return r.model }

// Close is a no-op since TEI is accessed over HTTP.
func (r *TEIReranker) Close() error { return nil }
