// Package reranker 提供交叉编码重排服务客户端
package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"mbs-coding-api/internal/application/coding"
	"mbs-coding-api/internal/config"
	"mbs-coding-api/pkg/logger"
	"mbs-coding-api/pkg/metrics"
)

type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]float64]
}

var _ coding.Reranker = (*Client)(nil)

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

func NewClient(cfg *config.RerankerConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "BAAI/bge-reranker-large"
	}

	settings := gobreaker.Settings{
		Name:        "reranker",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.Breaker.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.Breaker.FailureRate
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(context.Background(), "重排服务熔断器状态变化",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &Client{
		endpoint: cfg.Endpoint,
		model:    model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: gobreaker.NewCircuitBreaker[[]float64](settings),
	}
}

// Rerank 对 documents 按与 query 的相关性打分，返回与 documents 等长的得分序列
func (c *Client) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return []float64{}, nil
	}

	start := time.Now()
	scores, err := c.breaker.Execute(func() ([]float64, error) {
		return c.doRerank(ctx, query, documents)
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RerankCallTotal.WithLabelValues(status).Inc()
	metrics.RerankCallDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())

	if err != nil {
		if IsCircuitOpen(err) {
			return nil, fmt.Errorf("reranker circuit open: %w", err)
		}
		return nil, err
	}
	return scores, nil
}

func (c *Client) doRerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	reqBody, err := json.Marshal(&rerankRequest{
		Query:     query,
		Documents: documents,
		Model:     c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	endpoint := strings.TrimRight(c.endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("reranker endpoint is empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid reranker endpoint: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/rerank"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("rerank request failed: status=%d", httpResp.StatusCode)
	}

	var resp rerankResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}
	if len(resp.Scores) != len(documents) {
		return nil, fmt.Errorf("rerank score count mismatch: want %d, got %d", len(documents), len(resp.Scores))
	}
	return resp.Scores, nil
}

// IsCircuitOpen 判断错误是否由熔断器拒绝导致
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
