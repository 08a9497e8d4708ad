// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultTimeout bounds a one-shot request from connect to last byte.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps how much of a one-shot body is read.
	MaxResponseSize = 10 * 1024 * 1024

	userAgent = "ningprompt"
)

// Client talks to chat-completion endpoints. It is safe for concurrent use
// and must be closed when the program exits.
type Client struct {
	transport *http.Transport
	once      *http.Client // total timeout applies
	stream    *http.Client // context controlled
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout for one-shot calls. Streaming calls
// use it as the response-header deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client with its own pooled transport.
func New(opts ...Option) *Client {
	c := &Client{
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	// PERFORMANCE: one pool shared by both clients, reused across calls
	c.transport = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: c.timeout,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}
	c.once = &http.Client{Transport: c.transport, Timeout: c.timeout}
	c.stream = &http.Client{Transport: c.transport}
	return c
}

// Close releases pooled connections. In-flight calls are not interrupted.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

// SendOnce performs a non-streaming completion and decodes the reply.
// Every failure is returned as a *RequestError.
func (c *Client) SendOnce(ctx context.Context, req Request) (*ChatResponse, error) {
	endpoint := redactURL(req.URL)

	httpReq, err := c.newRequest(ctx, req, false)
	if err != nil {
		return nil, &RequestError{Kind: KindTransport, URL: endpoint, Err: err}
	}

	start := time.Now()
	c.logRequest(endpoint, req, false)

	resp, err := c.once.Do(httpReq)
	if err != nil {
		c.logger.Warn("llm request failed", "endpoint", endpoint, "error", err, "timeout", IsTimeout(err))
		return nil, &RequestError{Kind: KindTransport, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	c.logger.Debug("llm response", "endpoint", endpoint, "status", resp.StatusCode,
		"bytes", len(body), "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		return nil, &RequestError{Kind: KindTransport, URL: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Kind: KindHTTPStatus, URL: endpoint, Status: resp.StatusCode, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, &RequestError{Kind: KindDecode, URL: endpoint, Status: resp.StatusCode, Body: string(body)}
	}

	var out ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &RequestError{Kind: KindParse, URL: endpoint, Status: resp.StatusCode, Body: string(body), Err: err}
	}
	out.Raw = body
	return &out, nil
}

func (c *Client) newRequest(ctx context.Context, req Request, stream bool) (*http.Request, error) {
	payload, err := json.Marshal(chatBody{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	httpReq.Header.Set("User-Agent", userAgent)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	return httpReq, nil
}

func (c *Client) logRequest(endpoint string, req Request, stream bool) {
	c.logger.Debug("llm request",
		"endpoint", endpoint,
		"model", req.Model,
		"messages", len(req.Messages),
		"temperature", req.Temperature,
		"stream", stream,
	)
}

// redactURL keeps scheme, host and path; query strings sometimes carry keys.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host + u.Path
}
