// Package tracking turns device positions into check-ins, check-outs and
// live updates.
package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"time"

	"go.uber.org/zap"

	"staffdesk/internal/client/services"
	"staffdesk/internal/client/storage"
	"staffdesk/internal/models"
)

const (
	OneShotTimeout = 10 * time.Second
	WatchTimeout   = 15 * time.Second
)

type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Locator reads the device position. Implementations honour ctx.
type Locator interface {
	Locate(ctx context.Context) (Position, error)
}

// LocatorFunc adapts a func to Locator.
type LocatorFunc func(ctx context.Context) (Position, error)

func (f LocatorFunc) Locate(ctx context.Context) (Position, error) { return f(ctx) }

// Static always reports the same position.
type Static Position

func (s Static) Locate(context.Context) (Position, error) { return Position(s), nil }

var ErrNoPosition = errors.New("position unavailable")

func locate(ctx context.Context, l Locator, limit time.Duration) (Position, error) {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	p, err := l.Locate(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Position{}, fmt.Errorf("%w: timed out after %s", ErrNoPosition, limit)
		}
		return Position{}, fmt.Errorf("%w: %w", ErrNoPosition, err)
	}
	return p, nil
}

// MapURL links a coordinate to a satellite map view.
func MapURL(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%s,%s&z=19&t=h",
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lon, 'f', -1, 64))
}

// Fallback is the address used when reverse geocoding is unavailable.
func Fallback(p Position) string {
	return fmt.Sprintf("Location: %.4f, %.4f", p.Latitude, p.Longitude)
}

const DefaultGeocoderURL = "https://nominatim.openstreetmap.org"

// Geocoder resolves coordinates to a display address through a Nominatim
// compatible reverse endpoint.
type Geocoder struct {
	BaseURL   string
	UserAgent string
	HTTP      *http.Client
}

func NewGeocoder(baseURL string) *Geocoder {
	if baseURL == "" {
		baseURL = DefaultGeocoderURL
	}
	return &Geocoder{BaseURL: baseURL, UserAgent: "staffctl", HTTP: &http.Client{Timeout: 10 * time.Second}}
}

// Reverse never fails; any problem yields Fallback(p).
func (g *Geocoder) Reverse(ctx context.Context, p Position) string {
	if g == nil {
		return Fallback(p)
	}
	name, err := g.lookup(ctx, p)
	if err != nil || name == "" {
		return Fallback(p)
	}
	return name
}

func (g *Geocoder) lookup(ctx context.Context, p Position) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(p.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Longitude, 'f', -1, 64))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", g.UserAgent)
	resp, err := g.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode: status %d", resp.StatusCode)
	}
	var out struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	return out.DisplayName, nil
}

// Device describes the machine making the check-in.
func Device() string {
	return fmt.Sprintf("%s/%s - staffctl", runtime.GOOS, runtime.GOARCH)
}

type Tracker struct {
	Locations *services.Locations
	Store     storage.Storage
	Locator   Locator
	Geocoder  *Geocoder
	Log       *zap.SugaredLogger
	Now       func() time.Time
}

func (t *Tracker) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

func (t *Tracker) logger() *zap.SugaredLogger {
	if t.Log == nil {
		return zap.NewNop().Sugar()
	}
	return t.Log
}

// announce tells other processes sharing the store that the check-in state
// moved.
func (t *Tracker) announce() {
	ms := strconv.FormatInt(t.now().UnixMilli(), 10)
	if err := t.Store.Set(storage.KeyLocationStatusChanged, ms); err != nil {
		t.logger().Warnw("broadcast location status failed", "error", err)
	}
}

func (t *Tracker) CheckIn(ctx context.Context) (*models.LocationCheckIn, error) {
	p, err := locate(ctx, t.Locator, OneShotTimeout)
	if err != nil {
		return nil, err
	}
	env, err := t.Locations.CheckIn(ctx, services.CheckInRequest{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  p.Accuracy,
		Address:   t.Geocoder.Reverse(ctx, p),
		Device:    Device(),
	})
	if err != nil {
		return nil, fmt.Errorf("check in: %w", err)
	}
	t.announce()
	return &env.Data, nil
}

func (t *Tracker) CheckOut(ctx context.Context, id string) (*models.LocationCheckIn, error) {
	env, err := t.Locations.CheckOut(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check out: %w", err)
	}
	t.announce()
	return &env.Data, nil
}

// Track sends a live update every interval until ctx ends. Failed reads and
// rejected updates are logged and the loop carries on. onUpdate, when set,
// sees every accepted position.
func (t *Tracker) Track(ctx context.Context, id string, interval time.Duration, onUpdate func(Position)) error {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		t.step(ctx, id, onUpdate)
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}

func (t *Tracker) step(ctx context.Context, id string, onUpdate func(Position)) {
	p, err := locate(ctx, t.Locator, WatchTimeout)
	if err != nil {
		if ctx.Err() == nil {
			t.logger().Warnw("live position unavailable", "location", id, "error", err)
		}
		return
	}
	_, err = t.Locations.LiveUpdate(ctx, id, services.LiveUpdateRequest{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  p.Accuracy,
		Timestamp: t.now().UTC(),
	})
	if err != nil {
		if ctx.Err() == nil {
			t.logger().Warnw("live update failed", "location", id, "error", err)
		}
		return
	}
	if onUpdate != nil {
		onUpdate(p)
	}
}
