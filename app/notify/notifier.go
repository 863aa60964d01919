package notify

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
	"strings"
	"sync"
	"time"

	"github.com/lysyi3m/rss-herald/app/metrics"
)

// Message is one notification about a new entry.
type Message struct {
	Title    string
	Link     string
	SiteName string // optional
	ImageURL string // optional
}

type webhookPayload struct {
	Content string  `json:"content"`
	Embeds  []embed `json:"embeds,omitempty"`
}

type embed struct {
	Image *embedImage `json:"image,omitempty"`
}

type embedImage struct {
	URL string `json:"url"`
}

// Notifier posts messages to a Discord-compatible webhook. Successive Send
// calls are spaced at least sendDelay apart.
type Notifier struct {
	httpClient *http.Client
	timeout    time.Duration
	sendDelay  time.Duration

	mu       sync.Mutex
	lastSend time.Time
}

func NewNotifier(httpClient *http.Client, timeout, sendDelay time.Duration) *Notifier {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Notifier{
		httpClient: httpClient,
		timeout:    timeout,
		sendDelay:  sendDelay,
	}
}

// Content renders the plain-text body of a message.
func Content(msg Message) string {
	if msg.SiteName != "" {
		return fmt.Sprintf("📰 New post on **%s**\n**%s**\n%s", msg.SiteName, msg.Title, msg.Link)
	}
	return fmt.Sprintf("📰 New post\n**%s**\n%s", msg.Title, msg.Link)
}

// Send delivers msg with a single POST. A nil error means a 2xx response.
// Failures are logged and returned as *DeliveryError; they are never retried.
func (n *Notifier) Send(ctx context.Context, endpoint string, msg Message) error {
	if strings.TrimSpace(endpoint) == "" {
		slog.Warn("Notification skipped", "reason", "no webhook endpoint", "title", msg.Title)
		return ErrNoEndpoint
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.waitTurn(ctx); err != nil {
		return err
	}

	err := n.post(ctx, endpoint, msg)
	n.lastSend = time.Now()

	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		slog.Warn("Notification failed", "title", msg.Title, "link", msg.Link, "error", err)
		return err
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	slog.Info("Notification sent", "title", msg.Title, "link", msg.Link)
	return nil
}

func (n *Notifier) waitTurn(ctx context.Context) error {
	if n.lastSend.IsZero() || n.sendDelay <= 0 {
		return nil
	}

	wait := time.Until(n.lastSend.Add(n.sendDelay))
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (n *Notifier) post(ctx context.Context, endpoint string, msg Message) error {
	payload := webhookPayload{Content: Content(msg)}
	if msg.ImageURL != "" {
		payload.Embeds = []embed{{Image: &embedImage{URL: msg.ImageURL}}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Kind: DeliveryNetworkFailure, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Kind: transportKind(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DeliveryError{
			Kind:       DeliveryNonSuccessStatus,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}

func transportKind(err error) DeliveryErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return DeliveryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return DeliveryTimeout
	}
	return DeliveryNetworkFailure
}
