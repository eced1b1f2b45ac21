// Package webhook delivers signed alert notifications over HTTP.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 500 * time.Millisecond
)

// errPermanent marks responses that retrying will not fix.
var errPermanent = errors.New("permanent failure")

type Sender struct {
	url         string
	secret      string
	client      *http.Client
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
}

func NewSender(url, secret string, logger *slog.Logger) *Sender {
	return &Sender{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		logger:      logger,
	}
}

// WithRetry overrides the attempt count and the initial backoff, which doubles per attempt.
func (s *Sender) WithRetry(maxAttempts int, backoff time.Duration) *Sender {
	s.maxAttempts = maxAttempts
	s.backoff = backoff
	return s
}

// Send posts the payload, retrying transport errors, 429 and 5xx responses.
func (s *Sender) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	wait := s.backoff
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		lastErr = s.post(ctx, p.Type, body)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, errPermanent) || attempt == s.maxAttempts {
			break
		}

		s.logger.Warn("webhook delivery failed, retrying",
			"attempt", attempt,
			"event", p.Type,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}

	return fmt.Errorf("deliver %s webhook: %w", p.Type, lastErr)
}

func (s *Sender) post(ctx context.Context, eventType string, body []byte) error {
	ts := time.Now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w: %w", errPermanent, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, Sign(s.secret, ts, body))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderEvent, eventType)
	req.Header.Set("User-Agent", "VeerDrishti-Webhook/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	default:
		return fmt.Errorf("HTTP %d: %w", resp.StatusCode, errPermanent)
	}
}
