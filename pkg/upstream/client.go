package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"ai-docguard-be/pkg/apperror"
	"ai-docguard-be/pkg/metrics"
)

const (
	CollaboratorSummarizer = "summarizer"
	CollaboratorQA         = "qa"

	maxErrorBodyLen = 2048
)

// Client talks to the remote AI service. One instance is shared so connections are pooled.
type Client struct {
	BaseURL string
	Timeout time.Duration
	HTTP    *http.Client
	metrics *metrics.Metrics
}

func NewClient(baseURL string, timeout time.Duration, maxIdleConns int, m *metrics.Metrics) *Client {
	if maxIdleConns <= 0 {
		maxIdleConns = 16
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConns,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: timeout,
		// No Client.Timeout: the per-call context carries the budget so caller cancellation also applies.
		HTTP:    &http.Client{Transport: transport},
		metrics: m,
	}
}

// PostJSON sends payload as JSON and returns the raw 2xx body.
func (c *Client) PostJSON(ctx context.Context, collaborator, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("marshal request: %w", err))
	}

	return c.do(ctx, collaborator, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}

// PostMultipart streams fields plus one file part without buffering the file in memory.
func (c *Client) PostMultipart(ctx context.Context, collaborator, path string, fields map[string]string, fileField, fileName string, file io.Reader) ([]byte, error) {
	return c.do(ctx, collaborator, func(ctx context.Context) (*http.Request, error) {
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)

		go func() {
			pw.CloseWithError(writeMultipart(mw, fields, fileField, fileName, file))
		}()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, pr)
		if err != nil {
			pr.Close()
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}

func writeMultipart(mw *multipart.Writer, fields map[string]string, fileField, fileName string, file io.Reader) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile(fileField, fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	return mw.Close()
}

func (c *Client) do(ctx context.Context, collaborator string, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	body, err := c.roundTrip(ctx, build)

	outcome := "ok"
	if err != nil {
		outcome = string(apperror.KindOf(err))
	}
	c.metrics.ObserveUpstream(collaborator, outcome, time.Since(start))

	return body, err
}

func (c *Client) roundTrip(ctx context.Context, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	req, err := build(ctx)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("create request: %w", err))
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, Classify(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Classify(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.UpstreamRejected(resp.StatusCode, errorDetail(resp.StatusCode, body))
	}
	return body, nil
}

// Classify maps a transport failure onto the upstream error kinds.
func Classify(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperror.UpstreamTimeout(err)
	case errors.Is(err, context.Canceled):
		return apperror.Wrap(apperror.KindUpstreamTimeout, err, "request cancelled before the AI service answered")
	case errors.As(err, &netErr) && netErr.Timeout():
		return apperror.UpstreamTimeout(err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return apperror.UpstreamUnavailable(err)
	default:
		return apperror.UpstreamUnavailable(err)
	}
}

// errorDetail pulls FastAPI's {"detail": ...} out of an error body.
func errorDetail(status int, body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}
		return truncate(string(envelope.Detail))
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return truncate(text)
	}
	return http.StatusText(status)
}

func truncate(s string) string {
	if len(s) > maxErrorBodyLen {
		return s[:maxErrorBodyLen]
	}
	return s
}
