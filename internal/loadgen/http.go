package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brickfield/appraisal/internal/domain/model"
	"github.com/brickfield/appraisal/pkg/logger"
)

const (
	predictPath = "/api/v1/valuations/predict"
	batchPath   = "/api/v1/valuations/batch"
	healthPath  = "/healthz"
)

// client wraps http.Client with JSON helpers.
type client struct {
	http *http.Client
	base string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http: &http.Client{Timeout: timeout},
		base: baseURL,
	}
}

func (c *client) postJSON(ctx context.Context, path string, body any) (int, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, payload, nil
}

func (c *client) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// outcome classifies one submission.
type outcome struct {
	status   string // success, rejected, failed
	cached   bool
	fallback bool
}

// submitRequests pushes valuation requests through a worker pool and
// accumulates per-outcome counters into stats.
func submitRequests(ctx context.Context, cfg *Config, c *client, reqs []model.ValuationRequest, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting valuations",
		logger.Int("count", len(reqs)),
		logger.Int("workers", cfg.Workers),
	)

	var (
		submitted int64
		success   int64
		rejected  int64
		failed    int64
		cacheHits int64
		fallbacks int64
	)

	reqChan := make(chan model.ValuationRequest, cfg.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range reqChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				out := submitSingle(ctx, c, &req)
				atomic.AddInt64(&submitted, 1)
				switch out.status {
				case "success":
					atomic.AddInt64(&success, 1)
				case "rejected":
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
				if out.cached {
					atomic.AddInt64(&cacheHits, 1)
				}
				if out.fallback {
					atomic.AddInt64(&fallbacks, 1)
				}
			}
		}()
	}

	go func() {
		defer close(reqChan)
		for _, req := range reqs {
			select {
			case <-ctx.Done():
				return
			case reqChan <- req:
			}
		}
	}()

	wg.Wait()

	stats.Submitted += int(atomic.LoadInt64(&submitted))
	stats.Successful += int(atomic.LoadInt64(&success))
	stats.Rejected += int(atomic.LoadInt64(&rejected))
	stats.Failed += int(atomic.LoadInt64(&failed))
	stats.CacheHits += int(atomic.LoadInt64(&cacheHits))
	stats.FallbackResults += int(atomic.LoadInt64(&fallbacks))
}

// submitSingle posts one valuation and sanity checks the response shape.
func submitSingle(ctx context.Context, c *client, req *model.ValuationRequest) outcome {
	status, payload, err := c.postJSON(ctx, predictPath, req)
	if err != nil {
		return outcome{status: "failed"}
	}
	switch status {
	case http.StatusOK:
		var result model.EnsembleResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return outcome{status: "failed"}
		}
		if !resultConsistent(&result) {
			return outcome{status: "failed"}
		}
		return outcome{
			status:   "success",
			cached:   result.Cached,
			fallback: result.ModelVersion == "fallback",
		}
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return outcome{status: "rejected"}
	default:
		return outcome{status: "failed"}
	}
}

// resultConsistent checks the arithmetic a well formed valuation must obey.
func resultConsistent(r *model.EnsembleResult) bool {
	if r.PredictedValue <= 0 {
		return false
	}
	if r.Interval.Lower > r.PredictedValue || r.Interval.Upper < r.PredictedValue {
		return false
	}
	if r.Interval.UncertaintyPercentage < 1.5 || r.Interval.UncertaintyPercentage > 4.0 {
		return false
	}
	if r.ModelAgreement < 96.0 || r.ModelAgreement > 98.5 {
		return false
	}
	return true
}

// submitBatch posts one portfolio batch and records its counters.
func submitBatch(ctx context.Context, c *client, reqs []model.ValuationRequest, stats *Stats) error {
	body := map[string]any{"properties": reqs}
	status, payload, err := c.postJSON(ctx, batchPath, body)
	if err != nil {
		return fmt.Errorf("submit batch: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("submit batch: unexpected status %d", status)
	}

	var batch model.BatchResult
	if err := json.Unmarshal(payload, &batch); err != nil {
		return fmt.Errorf("decode batch response: %w", err)
	}
	if batch.Successful+batch.Failed != batch.TotalSubmitted {
		return fmt.Errorf("batch counters inconsistent: %d + %d != %d",
			batch.Successful, batch.Failed, batch.TotalSubmitted)
	}

	stats.BatchSubmitted = batch.TotalSubmitted
	stats.BatchSuccessful = batch.Successful
	stats.BatchFailed = batch.Failed
	return nil
}
