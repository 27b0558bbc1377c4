package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Result is a resolved Singapore address.
type Result struct {
	Lat         float64
	Lng         float64
	DisplayName string
}

// Client looks up Singapore addresses against a Nominatim-compatible
// geocoding service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Resolve geocodes a street plus 6-digit postal code. It makes a single
// attempt and returns nil on any network or zero-result failure; callers
// must treat nil as "use the fallback coordinate", never as fatal.
func (c *Client) Resolve(ctx context.Context, street, postalCode string) *Result {
	q := street + ", Singapore"
	if postalCode != "" {
		q = fmt.Sprintf("%s, Singapore %s", street, postalCode)
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("countrycodes", "sg")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", "soora-backend/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var results []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil
	}
	if len(results) == 0 {
		return nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil
	}

	displayName := results[0].DisplayName
	if displayName == "" {
		displayName = q
	}

	return &Result{Lat: lat, Lng: lng, DisplayName: displayName}
}
