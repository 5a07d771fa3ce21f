package eta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/voyya/internal/models"
)

// ErrNoRoute is returned when OSRM answers but cannot connect the two points.
var ErrNoRoute = errors.New("osrm: no route")

// Route is the fastest road route OSRM found between two points.
type Route struct {
	Seconds float64
	Meters  float64
}

// OSRMClient asks an OSRM HTTP server for road routes.
type OSRMClient struct {
	Endpoint string
	Profile  string
	Client   *http.Client
}

func NewOSRMClient(endpoint string) *OSRMClient {
	return &OSRMClient{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Profile:  "driving",
		Client:   &http.Client{Timeout: 2 * time.Second},
	}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Duration float64 `json:"duration"`
		Distance float64 `json:"distance"`
	} `json:"routes"`
}

// Route calls /route/v1/{profile}/{lon},{lat};{lon},{lat}. OSRM wants longitude first.
func (o *OSRMClient) Route(ctx context.Context, from, to models.Coord) (Route, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=false&alternatives=false",
		o.Endpoint, o.Profile, from.Lon, from.Lat, to.Lon, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Route{}, fmt.Errorf("osrm request: %w", err)
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return Route{}, fmt.Errorf("osrm request: %w", err)
	}
	defer resp.Body.Close()

	var out osrmResponse
	// OSRM reports NoRoute with a 400 and a JSON body, so decode before checking status
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Route{}, fmt.Errorf("osrm status %d: decode: %w", resp.StatusCode, err)
	}
	if out.Code == "NoRoute" || (out.Code == "Ok" && len(out.Routes) == 0) {
		return Route{}, ErrNoRoute
	}
	if resp.StatusCode != http.StatusOK || out.Code != "Ok" {
		return Route{}, fmt.Errorf("osrm status %d: %s %s", resp.StatusCode, out.Code, out.Message)
	}
	return Route{Seconds: out.Routes[0].Duration, Meters: out.Routes[0].Distance}, nil
}

func (o *OSRMClient) EstimateSeconds(ctx context.Context, from, to models.Coord) (float64, error) {
	r, err := o.Route(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return r.Seconds, nil
}
