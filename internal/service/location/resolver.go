package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"potholewatch/internal/logger"
	"potholewatch/internal/model"
)

// geocodeResponse mirrors the parts of the geocoding answer we use.
type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// Resolver turns the device position into a place name.
type Resolver struct {
	positioner Positioner
	endpoint   string
	apiKey     string
	client     *http.Client
	logger     *logger.Logger
}

// NewResolver creates a resolver using the given geocoding endpoint and key.
func NewResolver(positioner Positioner, endpoint, apiKey string, timeout time.Duration, logger *logger.Logger) *Resolver {
	return &Resolver{
		positioner: positioner,
		endpoint:   endpoint,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Resolve returns the locality of the device, or model.LocationUnknown on any
// failure. It makes a single attempt.
func (r *Resolver) Resolve(ctx context.Context) string {
	if r.positioner == nil {
		r.logger.Warning("Geolocation not supported")
		return model.LocationUnknown
	}

	pos, err := r.positioner.Position(ctx)
	if err != nil {
		r.logger.Warning("Geolocation error: %v", err)
		return model.LocationUnknown
	}

	name, err := r.geocode(ctx, pos)
	if err != nil {
		r.logger.Error("Error fetching location: %v", err)
		return model.LocationUnknown
	}
	return name
}

func (r *Resolver) geocode(ctx context.Context, pos Position) (string, error) {
	query := url.Values{}
	query.Set("latlng", fmt.Sprintf("%f,%f", pos.Latitude, pos.Longitude))
	query.Set("key", r.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoding returned %s", resp.Status)
	}

	var parsed geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode geocoding response: %w", err)
	}
	if parsed.Status != "OK" {
		return "", fmt.Errorf("geocoding API error: %s", parsed.Status)
	}
	if len(parsed.Results) == 0 {
		return model.LocationUnknown, nil
	}

	for _, comp := range parsed.Results[0].AddressComponents {
		if slices.Contains(comp.Types, "locality") || slices.Contains(comp.Types, "sublocality") {
			if comp.LongName != "" {
				return comp.LongName, nil
			}
			break
		}
	}
	return model.LocationUnknown, nil
}
