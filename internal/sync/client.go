// Package sync implements the push half of device synchronization: it
// paginates local events past the durable cursor, ships them to the hub
// and advances the cursor only after the hub acknowledged a batch.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"timely/internal/apperr"
	"timely/internal/domain"
	"timely/internal/store"
)

// BatchSize is the maximum number of events shipped per push request.
const BatchSize = 1000

// Device is the pushing device's identity as serialized on the wire.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
}

// Event is one event on the wire. Categories travel by name because
// category ids are not guaranteed to align across independently seeded
// hubs.
type Event struct {
	Timestamp    string  `json:"timestamp"`
	Duration     float64 `json:"duration"`
	App          string  `json:"app"`
	Title        string  `json:"title"`
	URL          *string `json:"url,omitempty"`
	URLDomain    *string `json:"url_domain,omitempty"`
	CategoryName *string `json:"category_name,omitempty"`
	IsAFK        bool    `json:"is_afk"`
}

// PushRequest is the body of POST /api/sync/push.
type PushRequest struct {
	Device Device  `json:"device"`
	Events []Event `json:"events"`
}

// PushResponse is the hub's acknowledgment for one batch.
type PushResponse struct {
	Accepted   int64 `json:"accepted"`
	Duplicates int64 `json:"duplicates"`
}

// RegisterRequest is the body of POST /api/sync/register.
type RegisterRequest struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
}

// RegisterResponse acknowledges an explicit device registration.
type RegisterResponse struct {
	DeviceID   string `json:"device_id"`
	Name       string `json:"name"`
	Registered bool   `json:"registered"`
}

// DeviceStatus is one device in the hub's status listing.
type DeviceStatus struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Platform   string `json:"platform"`
	LastSync   string `json:"last_sync"`
	EventCount int64  `json:"event_count"`
}

// StatusResponse is the hub's GET /api/sync/status payload.
type StatusResponse struct {
	Devices     []DeviceStatus `json:"devices"`
	TotalEvents int64          `json:"total_events"`
}

// PushResult totals one whole push run across all its batches.
type PushResult struct {
	Accepted   int64
	Duplicates int64
	Batches    int
	Pushed     int64
}

// Client pushes local events to a hub and queries its status.
type Client struct {
	hubURL string
	apiKey string
	http   *http.Client
	log    *slog.Logger

	events  *store.EventRepository
	syncLog *store.SyncLogRepository
}

// NewClient builds a push client for the given hub. hubURL must not have a
// trailing slash; apiKey may be empty for hubs running in open mode.
func NewClient(hubURL, apiKey string, events *store.EventRepository, syncLog *store.SyncLogRepository, log *slog.Logger) *Client {
	return &Client{
		hubURL:  hubURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		events:  events,
		syncLog: syncLog,
		log:     log,
	}
}

// FromSettings builds a Client from the sync.* keys of the settings table.
// A missing hub URL is a configuration error: sync has not been set up.
func FromSettings(ctx context.Context, settings *store.SettingsRepository, events *store.EventRepository, syncLog *store.SyncLogRepository, log *slog.Logger) (*Client, error) {
	hubURL, ok, err := settings.Get(ctx, store.SettingHubURL)
	if err != nil {
		return nil, err
	}
	if !ok || hubURL == "" {
		return nil, apperr.New(apperr.CodeConfig, "hub URL not configured, run `timely sync setup` first")
	}
	apiKey, _, err := settings.Get(ctx, store.SettingAPIKey)
	if err != nil {
		return nil, err
	}
	return NewClient(hubURL, apiKey, events, syncLog, log), nil
}

// Push sends every event past the durable cursor to the hub in batches.
// The cursor only advances after a batch was acknowledged, so a failed or
// interrupted push re-sends the same batch next time.
func (c *Client) Push(ctx context.Context, device *domain.Device) (*PushResult, error) {
	cursor, err := c.syncLog.Cursor(ctx, device.ID)
	if err != nil {
		return nil, err
	}

	result := &PushResult{}
	for {
		batch, err := c.events.QueryAfterID(ctx, device.ID, cursor, BatchSize)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		ack, err := c.pushBatch(ctx, device, batch)
		if err != nil {
			return nil, err
		}

		cursor = batch[len(batch)-1].ID
		if err := c.syncLog.Advance(ctx, device.ID, cursor); err != nil {
			return nil, err
		}

		result.Accepted += ack.Accepted
		result.Duplicates += ack.Duplicates
		result.Batches++
		result.Pushed += int64(len(batch))
		c.log.Debug("pushed batch",
			"events", len(batch), "accepted", ack.Accepted,
			"duplicates", ack.Duplicates, "cursor", cursor)

		if len(batch) < BatchSize {
			break
		}
	}
	return result, nil
}

func (c *Client) pushBatch(ctx context.Context, device *domain.Device, batch []*domain.Event) (*PushResponse, error) {
	req := PushRequest{
		Device: Device{ID: device.ID, Name: device.Name, Platform: device.Platform},
		Events: make([]Event, 0, len(batch)),
	}
	for _, e := range batch {
		req.Events = append(req.Events, Event{
			Timestamp:    e.Timestamp.UTC().Format(time.RFC3339),
			Duration:     e.Duration,
			App:          e.App,
			Title:        e.Title,
			URL:          e.URL,
			URLDomain:    e.URLDomain,
			CategoryName: e.CategoryName,
			IsAFK:        e.IsAFK,
		})
	}

	var ack PushResponse
	if err := c.post(ctx, "/api/sync/push", req, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Register announces this device to the hub outside of any event push.
func (c *Client) Register(ctx context.Context, device *domain.Device) (*RegisterResponse, error) {
	req := RegisterRequest{DeviceID: device.ID, Name: device.Name, Platform: device.Platform}
	var resp RegisterResponse
	if err := c.post(ctx, "/api/sync/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status fetches the hub's device listing and total event count.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.hubURL+"/api/sync/status", nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeSync, err, "build status request")
	}
	var resp StatusResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperr.Wrap(apperr.CodeSync, err, "encode request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.hubURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperr.Wrap(apperr.CodeSync, err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, out)
}

// envelope mirrors the hub's uniform response body.
type envelope struct {
	OK        bool            `json:"ok"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode apperr.Code     `json:"error_code,omitempty"`
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.CodeSync, err, "call hub")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperr.Wrap(apperr.CodeSync, err, "read hub response")
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return apperr.New(apperr.CodeSync, "hub returned %s with unreadable body", resp.Status)
	}
	if !env.OK || resp.StatusCode != http.StatusOK {
		code := env.ErrorCode
		if code == "" {
			code = apperr.CodeSync
		}
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("hub returned %s", resp.Status)
		}
		return apperr.New(code, "%s", msg)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperr.Wrap(apperr.CodeSync, err, "decode hub response")
		}
	}
	return nil
}
