package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"mapdesc_service/internal/domain/model"
)

type HTTPPublisher struct {
	endpoint string
	client   *http.Client
	log      *zap.Logger
}

func NewHTTPPublisher(endpoint string, timeout time.Duration, logger *zap.Logger) *HTTPPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPPublisher{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
		log: logger,
	}
}

// Publish uploads every artifact in parallel, one worker per artifact, as
// PUT <endpoint>/<runID>/<name>. All failures are reported together.
func (p *HTTPPublisher) Publish(ctx context.Context, runID string, artifacts []model.Artifact) error {
	start := time.Now()
	errs := make([]error, len(artifacts))

	var wg sync.WaitGroup
	for i, a := range artifacts {
		wg.Add(1)
		go func(i int, a model.Artifact) {
			defer wg.Done()
			errs[i] = p.upload(ctx, runID, a)
		}(i, a)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}
	p.log.Info("published artifacts",
		zap.String("run_id", runID),
		zap.Int("artifacts", len(artifacts)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (p *HTTPPublisher) upload(ctx context.Context, runID string, a model.Artifact) error {
	target, err := url.JoinPath(p.endpoint, runID, a.Name)
	if err != nil {
		return fmt.Errorf("invalid publish url for %s: %w", a.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(a.Data))
	if err != nil {
		return fmt.Errorf("failed to create upload request for %s: %w", a.Name, err)
	}
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload of %s failed: %w", a.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload of %s returned status: %d", a.Name, resp.StatusCode)
	}
	p.log.Debug("uploaded artifact", zap.String("name", a.Name), zap.Int("bytes", len(a.Data)))
	return nil
}
