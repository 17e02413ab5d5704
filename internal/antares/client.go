// Package antares fetches loci and their alerts from the ANTARES broker API.
package antares

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scimma/lsst-quality-filter/internal/types"
)

// DiaObjectIDProperty is the locus property holding the LSST diaObject ID.
const DiaObjectIDProperty = "lsst_diaObject_diaObjectId"

var ErrLocusNotFound = errors.New("locus not found")

type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

type Client struct {
	baseURL    *url.URL
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid antares base url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

type resource struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes json.RawMessage `json:"attributes"`
}

type document struct {
	Data  []resource `json:"data"`
	Links struct {
		Next *string `json:"next"`
	} `json:"links"`
}

type locusAttributes struct {
	LocusID    string           `json:"locus_id"`
	RA         float64          `json:"ra"`
	Dec        float64          `json:"dec"`
	Properties types.Properties `json:"properties"`
	Tags       []string         `json:"tags"`
}

type alertAttributes struct {
	AlertID    string           `json:"alert_id"`
	MJD        float64          `json:"mjd"`
	Properties types.Properties `json:"properties"`
}

// GetByLSSTDiaObjectID looks up the locus associated with an LSST diaObject and
// returns it with all of its alerts, oldest first.
func (c *Client) GetByLSSTDiaObjectID(ctx context.Context, diaObjectID string) (*types.Locus, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": map[string]interface{}{
					"term": map[string]interface{}{
						"properties." + DiaObjectIDProperty: diaObjectID,
					},
				},
			},
		},
	}
	rawQuery, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("elasticsearch_query[locus_listing]", string(rawQuery))
	params.Set("page[limit]", "1")

	var doc document
	if err := c.get(ctx, "/loci", params, &doc); err != nil {
		return nil, err
	}
	if len(doc.Data) == 0 {
		return nil, fmt.Errorf("diaObject %s: %w", diaObjectID, ErrLocusNotFound)
	}

	locus, err := decodeLocus(doc.Data[0])
	if err != nil {
		return nil, err
	}

	alerts, err := c.GetAlerts(ctx, locus.ID)
	if err != nil {
		return nil, err
	}
	locus.Alerts = alerts
	locus.SortAlerts()

	c.logger.Debug("Fetched locus",
		zap.String("dia_object_id", diaObjectID),
		zap.String("locus_id", locus.ID),
		zap.Int("alerts", len(locus.Alerts)))

	return locus, nil
}

// GetAlerts returns every alert of a locus in the order the API lists them,
// following links.next across pages.
func (c *Client) GetAlerts(ctx context.Context, locusID string) ([]types.Alert, error) {
	var doc document
	if err := c.get(ctx, "/loci/"+url.PathEscape(locusID)+"/alerts", nil, &doc); err != nil {
		return nil, err
	}

	var alerts []types.Alert
	seen := make(map[string]bool)
	for {
		for _, res := range doc.Data {
			var attrs alertAttributes
			if err := decodeAttributes(res.Attributes, &attrs); err != nil {
				return nil, fmt.Errorf("decode alert %s: %w", res.ID, err)
			}
			id := attrs.AlertID
			if id == "" {
				id = res.ID
			}
			alerts = append(alerts, types.Alert{
				ID:         id,
				MJD:        attrs.MJD,
				Properties: attrs.Properties,
			})
		}

		if doc.Links.Next == nil || *doc.Links.Next == "" {
			break
		}
		next := *doc.Links.Next
		if seen[next] {
			return nil, fmt.Errorf("antares alerts for %s: pagination loops at %s", locusID, next)
		}
		seen[next] = true

		nextURL, err := c.baseURL.Parse(next)
		if err != nil {
			return nil, fmt.Errorf("antares alerts for %s: invalid next link %q: %w", locusID, next, err)
		}
		doc = document{}
		if err := c.do(ctx, nextURL, &doc); err != nil {
			return nil, err
		}
	}

	if alerts == nil {
		alerts = []types.Alert{}
	}
	return alerts, nil
}

func decodeLocus(res resource) (*types.Locus, error) {
	var attrs locusAttributes
	if err := decodeAttributes(res.Attributes, &attrs); err != nil {
		return nil, fmt.Errorf("decode locus %s: %w", res.ID, err)
	}
	id := attrs.LocusID
	if id == "" {
		id = res.ID
	}
	return &types.Locus{
		ID:         id,
		RA:         attrs.RA,
		Dec:        attrs.Dec,
		Properties: attrs.Properties,
		Tags:       attrs.Tags,
	}, nil
}

// decodeAttributes keeps numbers as json.Number so 64-bit identifiers survive.
func decodeAttributes(raw json.RawMessage, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dst)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dst interface{}) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if params != nil {
		u.RawQuery = params.Encode()
	}
	return c.do(ctx, &u, dst)
}

func (c *Client) do(ctx context.Context, u *url.URL, dst interface{}) error {
	path := u.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	if c.apiKey != "" {
		req.SetBasicAuth(c.apiKey, c.apiSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("antares request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("antares %s: %w", path, ErrLocusNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("antares %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode antares response %s: %w", path, err)
	}
	return nil
}
