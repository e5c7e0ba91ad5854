package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/travigo/busdelay/pkg/model"
)

const (
	servicesEndpoint = "/get_services"
	stopsEndpoint    = "/get_stops"
)

// looseString accepts either a JSON string or number
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var id model.ServiceID
	if err := id.UnmarshalJSON(data); err != nil {
		return err
	}
	*s = looseString(id)

	return nil
}

type directoryService struct {
	ID          model.ServiceID `json:"id"`
	LegacyID    model.ServiceID `json:"_id"`
	Number      looseString     `json:"number"`
	Description string          `json:"description"`
	Origin      string          `json:"origin"`
	Destination string          `json:"destination"`
}

func (d directoryService) toService() model.Service {
	service := model.Service{
		ID:          d.ID,
		Number:      string(d.Number),
		Description: d.Description,
		Origin:      d.Origin,
		Destination: d.Destination,
	}
	if service.ID == "" {
		service.ID = d.LegacyID
	}
	service.FillEndpoints()

	return service
}

// GetServices searches the directory. An empty query returns the server's default list.
func (c *Client) GetServices(ctx context.Context, query string) ([]model.Service, error) {
	var directoryServices []directoryService

	err := c.do(ctx, "GET", servicesEndpoint, url.Values{"query": {query}}, nil, &directoryServices)
	if err != nil {
		return nil, err
	}

	services := make([]model.Service, 0, len(directoryServices))
	for _, directoryService := range directoryServices {
		services = append(services, directoryService.toService())
	}

	return services, nil
}

// GetStops returns the ordered stop names of a service's route
func (c *Client) GetStops(ctx context.Context, serviceID model.ServiceID) (model.Route, error) {
	var payload json.RawMessage

	err := c.do(ctx, "GET", stopsEndpoint, url.Values{"service_id": {serviceID.String()}}, nil, &payload)
	if err != nil {
		return nil, err
	}

	return ParseStops(payload)
}

// ParseStops accepts a plain list of names or a {"stops": [...], "error": "..."} envelope
func ParseStops(payload []byte) (model.Route, error) {
	var plain []string
	if err := json.Unmarshal(payload, &plain); err == nil {
		return model.Route(plain), nil
	}

	var envelope struct {
		Stops []string `json:"stops"`
		Error string   `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode stops: %w", err)
	}

	if envelope.Error != "" {
		return nil, errors.New(envelope.Error)
	}

	return model.Route(envelope.Stops), nil
}
