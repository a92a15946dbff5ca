// Package linkapi is the HTTP client for the link analysis service.
package linkapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Bahjat/linkboard/internal/model"
	"github.com/Bahjat/linkboard/internal/platform/errs"
	"github.com/Bahjat/linkboard/internal/platform/requestid"
)

const (
	linksPath = "/links"

	// maxErrorBody caps how much of a failed response is read for its message.
	maxErrorBody = 64 << 10
	// maxPageBody caps a list response.
	maxPageBody = 10 << 20
)

var errInvalidBaseURL = errors.New("linkapi: base URL must be an absolute http(s) URL")

// Client talks to the /links endpoints of the analysis service.
type Client struct {
	base   *url.URL
	client *http.Client
	logger *slog.Logger
}

// NewClient returns a Client for the service at baseURL. A nil httpClient
// gets one with a 15s timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", errInvalidBaseURL, baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: u, client: httpClient, logger: logger}, nil
}

// FetchPage requests one page of records.
func (c *Client) FetchPage(ctx context.Context, page, amount int) (*model.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("amount", strconv.Itoa(amount))

	resp, err := c.do(ctx, http.MethodGet, linksPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	p, err := model.DecodePage(io.LimitReader(resp.Body, maxPageBody))
	if err != nil {
		return nil, &errs.AppError{
			Kind:    errs.ParsingFailed,
			Message: "The service returned an unreadable page.",
			Cause:   err,
		}
	}
	return p, nil
}

// Submit queues urls for analysis.
func (c *Client) Submit(ctx context.Context, urls []string) error {
	resp, err := c.do(ctx, http.MethodPost, linksPath, model.SubmitRequest{URLs: urls})
	if err != nil {
		return err
	}
	return drain(resp)
}

// UpdateStatus asks the service to move record id to status.
func (c *Client) UpdateStatus(ctx context.Context, id int, status model.Status) error {
	resp, err := c.do(ctx, http.MethodPut, linksPath, model.StatusUpdate{ID: id, Status: status})
	if err != nil {
		return err
	}
	return drain(resp)
}

// do sends the request and returns the response only for 2xx statuses. Any
// other outcome is reported as an *errs.AppError.
func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("linkapi: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("linkapi: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("link service request failed", "method", method, "path", path, "error", err)
		return nil, transportError(err)
	}

	c.logger.Debug("link service request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start).String(),
		"request_id", requestid.FromContext(ctx),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		return nil, &errs.AppError{
			Kind:           errs.Rejected,
			UpstreamStatus: resp.StatusCode,
			Message:        errorMessage(resp),
		}
	}
	return resp, nil
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &errs.AppError{
			Kind:    errs.Timeout,
			Message: "The link service did not respond in time.",
			Cause:   err,
		}
	}
	return &errs.AppError{
		Kind:    errs.Unreachable,
		Message: "The link service could not be reached.",
		Cause:   err,
	}
}

// errorMessage extracts the service's message from a failed response,
// falling back to the raw body and then the status text.
func errorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var e model.ErrorResponse
	if json.Unmarshal(raw, &e) == nil && e.Message != "" {
		return e.Message
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return http.StatusText(resp.StatusCode)
}

func drain(resp *http.Response) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return resp.Body.Close()
}
