package services

import (
	"context"
	"net/http"
	"time"

	"staffdesk/internal/api"
	"staffdesk/internal/client"
	"staffdesk/internal/models"
)

type LocationFilter struct {
	EmployeeID string
	Status     string
}

type CheckInRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Address   string  `json:"address"`
	Device    string  `json:"device"`
}

type LiveUpdateRequest struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

type Locations struct{ c *client.Client }

const locationsPath = "/locations"

func (s *Locations) List(ctx context.Context, f LocationFilter) (*api.Envelope[[]models.LocationCheckIn], error) {
	return get[[]models.LocationCheckIn](ctx, s.c, locationsPath, values("employeeId", f.EmployeeID, "status", f.Status))
}

func (s *Locations) Get(ctx context.Context, id string) (*api.Envelope[models.LocationCheckIn], error) {
	return get[models.LocationCheckIn](ctx, s.c, idPath(locationsPath, id), nil)
}

func (s *Locations) CheckIn(ctx context.Context, in CheckInRequest) (*api.Envelope[models.LocationCheckIn], error) {
	return call[models.LocationCheckIn](ctx, s.c, http.MethodPost, locationsPath+"/checkin", nil, in)
}

func (s *Locations) CheckOut(ctx context.Context, id string) (*api.Envelope[models.LocationCheckIn], error) {
	return call[models.LocationCheckIn](ctx, s.c, http.MethodPut, idPath(locationsPath, id)+"/checkout", nil, nil)
}

func (s *Locations) LiveUpdate(ctx context.Context, id string, in LiveUpdateRequest) (*api.Envelope[models.LocationCheckIn], error) {
	return call[models.LocationCheckIn](ctx, s.c, http.MethodPut, idPath(locationsPath, id)+"/live-update", nil, in)
}

func (s *Locations) Delete(ctx context.Context, id string) (*api.Envelope[Deleted], error) {
	return call[Deleted](ctx, s.c, http.MethodDelete, idPath(locationsPath, id), nil, nil)
}
