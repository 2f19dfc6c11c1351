package vpic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// VINLength is the only identifier length the decoder accepts.
const VINLength = 17

// ErrInvalidVIN is returned by DecodeVIN for identifiers that are not 17
// characters long.
var ErrInvalidVIN = errors.New("vpic: vin must be 17 characters")

// StatusError reports a non-200 response from the catalog.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vpic: unexpected status %d from %s", e.Code, e.URL)
}

func (e *StatusError) StatusCode() int { return e.Code }

// Decoded holds the fields of a VIN decode the wizard cares about. Year is
// zero when the catalog did not report a model year.
type Decoded struct {
	VIN   string `json:"vin"`
	Year  int    `json:"year,omitempty"`
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
}

// Empty reports whether the decode produced nothing usable.
func (d Decoded) Empty() bool {
	return d.Year == 0 && d.Make == "" && d.Model == ""
}

type Client struct {
	opts Options
}

func New(fns ...OptionFn) *Client {
	return &Client{opts: NewOptions(fns...)}
}

// VehicleType reports the vehicle type sent with make and model queries.
func (c *Client) VehicleType() string {
	return c.opts.VehicleType
}

type resultsEnvelope[T any] struct {
	Results []T `json:"Results"`
}

type makeEntry struct {
	MakeName    string `json:"MakeName"`
	MakeNameAlt string `json:"Make_Name"`
}

func (m makeEntry) name() string {
	if m.MakeName != "" {
		return m.MakeName
	}
	return m.MakeNameAlt
}

type modelEntry struct {
	ModelName string `json:"Model_Name"`
}

type decodeEntry struct {
	ModelYear string `json:"ModelYear"`
	Make      string `json:"Make"`
	Model     string `json:"Model"`
}

// Makes lists the raw make names the catalog reports for year. Names are
// returned in catalog order; callers normalise them.
func (c *Client) Makes(ctx context.Context, year int) ([]string, error) {
	endpoint := fmt.Sprintf("%s/GetMakesForVehicleModelYear/%d?%s",
		c.opts.BaseURL, year, c.query(true).Encode())

	var env resultsEnvelope[makeEntry]
	if err := c.get(ctx, endpoint, &env); err != nil {
		return nil, fmt.Errorf("vpic: makes for %d: %w", year, err)
	}

	names := make([]string, 0, len(env.Results))
	for _, entry := range env.Results {
		names = append(names, entry.name())
	}
	return names, nil
}

// Models lists the raw model names for makeName in year.
func (c *Client) Models(ctx context.Context, makeName string, year int) ([]string, error) {
	makeName = strings.TrimSpace(makeName)
	if makeName == "" {
		return nil, errors.New("vpic: make is required")
	}
	endpoint := fmt.Sprintf("%s/GetModelsForMakeYear/make/%s/modelyear/%d?%s",
		c.opts.BaseURL, url.PathEscape(makeName), year, c.query(true).Encode())

	var env resultsEnvelope[modelEntry]
	if err := c.get(ctx, endpoint, &env); err != nil {
		return nil, fmt.Errorf("vpic: models for %s %d: %w", makeName, year, err)
	}

	names := make([]string, 0, len(env.Results))
	for _, entry := range env.Results {
		names = append(names, entry.ModelName)
	}
	return names, nil
}

// DecodeVIN resolves a 17-character identifier. A decode with no results
// yields an empty Decoded value and no error.
func (c *Client) DecodeVIN(ctx context.Context, vin string) (Decoded, error) {
	vin = strings.ToUpper(strings.TrimSpace(vin))
	if len(vin) != VINLength {
		return Decoded{}, ErrInvalidVIN
	}
	endpoint := fmt.Sprintf("%s/DecodeVinValuesExtended/%s?%s",
		c.opts.BaseURL, url.PathEscape(vin), c.query(false).Encode())

	var env resultsEnvelope[decodeEntry]
	if err := c.get(ctx, endpoint, &env); err != nil {
		return Decoded{}, fmt.Errorf("vpic: decode %s: %w", vin, err)
	}

	out := Decoded{VIN: vin}
	if len(env.Results) == 0 {
		return out, nil
	}
	first := env.Results[0]
	if year, err := strconv.Atoi(strings.TrimSpace(first.ModelYear)); err == nil && year > 0 {
		out.Year = year
	}
	out.Make = strings.TrimSpace(first.Make)
	out.Model = strings.TrimSpace(first.Model)
	return out, nil
}

func (c *Client) query(withType bool) url.Values {
	q := url.Values{}
	if withType {
		q.Set("vehicleType", c.opts.VehicleType)
	}
	q.Set("format", "json")
	return q
}

func (c *Client) get(ctx context.Context, endpoint string, target any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)

	c.opts.Logger.DebugContext(ctx, "vpic request", "url", endpoint)

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode, URL: endpoint}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
