// Package tracker is the client-side tracking agent for the analytics
// service. It emits best-effort, fire-and-forget telemetry: sends are
// queued to a background worker and dropped when the queue is full.
// At-most-once, no retry.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"fixbro/api/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultGeoURL      = "https://ipapi.co/json/"
	defaultAdminPrefix = "/admin"
	defaultQueueSize   = 64
)

type beacon struct {
	path string
	body []byte
}

// Client tracks one session: a random session id generated at construction
// and held in memory only, correlating the visitor log and all events.
type Client struct {
	baseURL     string
	adminPrefix string
	deviceInfo  string
	geoURL      string
	httpc       *http.Client
	log         *zap.Logger
	userID      func() string

	sessionID string

	mu          sync.Mutex
	closed      bool
	currentPath string
	pendingEnds map[uint64]func()
	nextEndID   uint64

	queue     chan beacon
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type Option func(*Client)

// WithUserID sets the resolver for the current user id. An empty result
// reports the visitor as "guest".
func WithUserID(resolve func() string) Option {
	return func(c *Client) { c.userID = resolve }
}

func WithDeviceInfo(deviceInfo string) Option {
	return func(c *Client) { c.deviceInfo = deviceInfo }
}

func WithGeoURL(geoURL string) Option {
	return func(c *Client) { c.geoURL = geoURL }
}

func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithAdminPrefix(prefix string) Option {
	return func(c *Client) { c.adminPrefix = prefix }
}

// New creates a tracking client for the service at baseURL and starts its
// send worker. Callers must Close the client to flush queued sends.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		adminPrefix: defaultAdminPrefix,
		deviceInfo:  "Unknown",
		geoURL:      defaultGeoURL,
		httpc:       &http.Client{Timeout: 5 * time.Second},
		log:         zap.NewNop(),
		sessionID:   uuid.New().String(),
		pendingEnds: make(map[uint64]func()),
		queue:       make(chan beacon, defaultQueueSize),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.wg.Add(1)
	go c.worker()
	return c
}

// SessionID returns the session identifier correlating this client's events.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Start resolves geolocation once and submits the visitor log. A failed
// lookup still submits the log with a sentinel "Error" IP: visitor logging
// is attempted even when enrichment fails.
func (c *Client) Start(ctx context.Context) {
	geo, err := c.geolocate(ctx)
	if err != nil {
		c.log.Warn("geolocation lookup failed", zap.Error(err))
		geo = models.GeoData{IP: "Error"}
	}

	c.send("/api/track", models.TrackVisitorRequest{
		SessionID:  c.sessionID,
		GeoData:    &geo,
		DeviceInfo: c.deviceInfo,
	})
}

// TrackEvent queues one event of the given kind. It is a silent no-op on
// admin paths and when no session id exists.
func (c *Client) TrackEvent(kind string, payload map[string]any) {
	c.mu.Lock()
	onAdmin := strings.HasPrefix(c.currentPath, c.adminPrefix)
	c.mu.Unlock()

	if onAdmin || c.sessionID == "" {
		return
	}

	data := make(map[string]any, len(payload)+3)
	for key, value := range payload {
		data[key] = value
	}
	userID := ""
	if c.userID != nil {
		userID = c.userID()
	}
	if userID == "" {
		userID = "guest"
	}
	data["userId"] = userID
	data["sessionId"] = c.sessionID
	data["clientTimestamp"] = time.Now().UTC().Format(time.RFC3339Nano)

	c.send("/api/track/event", models.TrackEventRequest{
		EventType: kind,
		Data:      data,
	})
}

// Pageview emits a page_start event for url and returns a stop function
// emitting the matching page_end with elapsed duration in milliseconds.
// The stop function and the client's Close are two triggers for the same
// logical end event; a sync.Once guarantees it fires at most once.
func (c *Client) Pageview(url string) func() {
	c.mu.Lock()
	referrer := c.currentPath
	c.currentPath = url
	c.mu.Unlock()

	if strings.HasPrefix(url, c.adminPrefix) {
		return func() {}
	}

	c.TrackEvent(models.EventTypePageVisit, map[string]any{
		"event":    models.EventPageStart,
		"pageUrl":  url,
		"referrer": referrer,
	})

	start := time.Now()
	var once sync.Once
	var id uint64

	end := func() {
		once.Do(func() {
			c.TrackEvent(models.EventTypePageVisit, map[string]any{
				"event":    models.EventPageEnd,
				"pageUrl":  url,
				"duration": time.Since(start).Milliseconds(),
			})
		})
		c.mu.Lock()
		delete(c.pendingEnds, id)
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.nextEndID++
	id = c.nextEndID
	c.pendingEnds[id] = end
	c.mu.Unlock()

	return end
}

// Close fires outstanding page ends, flushes queued sends and stops the
// worker. The client must not be used afterwards.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		ends := make([]func(), 0, len(c.pendingEnds))
		for _, end := range c.pendingEnds {
			ends = append(ends, end)
		}
		c.mu.Unlock()

		for _, end := range ends {
			end()
		}

		c.mu.Lock()
		c.closed = true
		close(c.queue)
		c.mu.Unlock()

		c.wg.Wait()
	})
}

// send marshals the payload and enqueues it without blocking; when the
// queue is full the newest send is dropped and logged.
func (c *Client) send(path string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.log.Warn("failed to marshal tracking payload", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.queue <- beacon{path: path, body: body}:
	default:
		c.log.Warn("tracking queue full, dropping send", zap.String("path", path))
	}
}

func (c *Client) worker() {
	defer c.wg.Done()
	for b := range c.queue {
		c.post(b)
	}
}

func (c *Client) post(b beacon) {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+b.path, bytes.NewReader(b.body))
	if err != nil {
		c.log.Warn("failed to build tracking request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Debug("tracking send failed", zap.String("path", b.path), zap.Error(err))
		return
	}
	resp.Body.Close()
}

func (c *Client) geolocate(ctx context.Context) (models.GeoData, error) {
	var geo models.GeoData

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.geoURL, nil)
	if err != nil {
		return geo, fmt.Errorf("failed to build geolocation request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return geo, fmt.Errorf("geolocation lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geo, fmt.Errorf("geolocation lookup failed with status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return geo, fmt.Errorf("failed to decode geolocation response: %w", err)
	}
	return geo, nil
}
