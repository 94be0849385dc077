package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProgressFunc receives the number of bytes sent so far and the total.
type ProgressFunc func(sent, total int64)

type progressReader struct {
	r        io.Reader
	total    int64
	sent     int64
	progress ProgressFunc
	mu       sync.Mutex
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.sent += int64(n)
		sent := p.sent
		p.mu.Unlock()
		if p.progress != nil {
			p.progress(sent, p.total)
		}
	}
	return n, err
}

// UploadFile streams r to the backend as the raw request body. The
// upload token and file name travel in headers. Uploads are never
// retried and are bounded by ctx rather than the client timeout.
func (c *Client) UploadFile(ctx context.Context, token, name string, r io.Reader, size int64, progress ProgressFunc) (*UploadResult, error) {
	if token == "" {
		return nil, fmt.Errorf("upload token is required")
	}
	name = filepath.Base(name)

	ctx, span := c.tracer.Start(ctx, "POST /files/upload", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", http.MethodPost),
		attribute.String("http.route", "/files/upload"),
		attribute.Int64("upload.size", size),
	)

	body := &progressReader{r: r, total: size, progress: progress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/upload", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if size >= 0 {
		req.ContentLength = size
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("x-upload-token", token)
	req.Header.Set("x-file-name", url.PathEscape(name))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		herr := newHTTPError(resp.StatusCode, data)
		span.SetStatus(codes.Error, herr.Message)
		return nil, herr
	}
	if err := checkResult(data); err != nil {
		return nil, err
	}

	result := &UploadResult{}
	if len(bytes.TrimSpace(data)) > 0 {
		result, err = decodeOne[UploadResult](data)
		if err != nil {
			return nil, err
		}
	}
	if result.Name == "" {
		result.Name = name
	}
	if result.Size == 0 {
		result.Size = body.sent
	}
	return result, nil
}
