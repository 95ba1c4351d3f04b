/**
 * @description
 * Support chat widget control for the checkout page. The chat is an external
 * hosted service enabled for a hand-picked set of projects; its backend loads
 * lazily, so showing the widget polls the readiness endpoint with a bounded
 * number of retries. The widget degrades silently: a dead chat service leaves
 * checkout untouched.
 *
 * @dependencies
 * - net/http, sync, time: Standard Go libraries.
 * - github.com/google/uuid: Project identifiers.
 * - github.com/rs/zerolog: Structured logging.
 */
package chatwidget

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultMaxAttempts  = 20
	defaultPollInterval = 500 * time.Millisecond
)

// Widget controls the support chat's visibility for checkout sessions.
type Widget struct {
	baseURL  string
	enabled  map[string]bool
	client   *http.Client
	logger   zerolog.Logger
	attempts int
	interval time.Duration

	mu      sync.Mutex
	ready   bool
	visible bool
}

// Option adjusts the widget's polling behaviour.
type Option func(*Widget)

// WithPolling overrides the retry count and interval used while waiting for
// the chat service to come up.
func WithPolling(attempts int, interval time.Duration) Option {
	return func(w *Widget) {
		if attempts > 0 {
			w.attempts = attempts
		}
		if interval > 0 {
			w.interval = interval
		}
	}
}

// New creates a chat widget. An empty baseURL or empty project set produces a
// permanently hidden widget.
func New(baseURL string, enabledProjects map[string]bool, logger zerolog.Logger, opts ...Option) *Widget {
	w := &Widget{
		baseURL:  baseURL,
		enabled:  enabledProjects,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger.With().Str("component", "chatwidget").Logger(),
		attempts: defaultMaxAttempts,
		interval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// EnabledFor reports whether the chat is configured for the project.
func (w *Widget) EnabledFor(projectID uuid.UUID) bool {
	return w.baseURL != "" && w.enabled[projectID.String()]
}

// Show makes the widget visible for the project's checkout session. It waits
// for the chat service to report ready, retrying on a fixed interval, and
// gives up silently once the attempts are exhausted. The returned bool
// reports whether the widget ended up visible.
func (w *Widget) Show(ctx context.Context, projectID uuid.UUID) bool {
	if !w.EnabledFor(projectID) {
		w.Hide()
		return false
	}

	if !w.waitReady(ctx) {
		w.logger.Debug().Str("project_id", projectID.String()).Msg("chat service never became ready; leaving widget hidden")
		w.Hide()
		return false
	}

	w.mu.Lock()
	w.visible = true
	w.mu.Unlock()
	return true
}

// Hide removes the widget from the checkout session.
func (w *Widget) Hide() {
	w.mu.Lock()
	w.visible = false
	w.mu.Unlock()
}

// Visible reports the widget's current visibility.
func (w *Widget) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// waitReady polls the chat service's status endpoint until it answers 200,
// the attempts run out, or the context is cancelled. Readiness is cached:
// once the service has answered, later Show calls skip the polling.
func (w *Widget) waitReady(ctx context.Context) bool {
	w.mu.Lock()
	if w.ready {
		w.mu.Unlock()
		return true
	}
	w.mu.Unlock()

	for attempt := 0; attempt < w.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(w.interval):
			}
		}

		if w.probe(ctx) {
			w.mu.Lock()
			w.ready = true
			w.mu.Unlock()
			return true
		}
	}
	return false
}

func (w *Widget) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/status", nil)
	if err != nil {
		return false
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
