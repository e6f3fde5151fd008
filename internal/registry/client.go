// Package registry talks to the national provider registry (NPPES). The
// client normalizes transport failures into sentinel errors so the sync
// engine can distinguish "no such NPI" from "registry is down".
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"credentialwatch/pkg/platform/sentinel"
)

const apiVersion = "2.1"

// Address is one postal address attached to a registry record.
type Address struct {
	Address1        string `json:"address_1"`
	City            string `json:"city"`
	State           string `json:"state"`
	PostalCode      string `json:"postal_code"`
	CountryCode     string `json:"country_code"`
	TelephoneNumber string `json:"telephone_number,omitempty"`
	Purpose         string `json:"address_purpose,omitempty"`
}

// Taxonomy is one specialty classification attached to a registry record.
type Taxonomy struct {
	Code    string `json:"code"`
	Desc    string `json:"desc,omitempty"`
	Primary bool   `json:"primary"`
	State   string `json:"state,omitempty"`
	License string `json:"license,omitempty"`
}

// Record is a normalized registry entry for one provider.
type Record struct {
	NPI             string     `json:"npi"`
	FullName        string     `json:"full_name"`
	EnumerationType string     `json:"enumeration_type"`
	Addresses       []Address  `json:"addresses"`
	Taxonomies      []Taxonomy `json:"taxonomies"`
}

// SearchRequest is a free-form registry search. Query interpretation is
// heuristic and documented on Search.
type SearchRequest struct {
	Query    string
	State    string
	Taxonomy string
}

// Lookup is the interface the rest of the system consumes. The live client
// and the Redis cache decorator both implement it.
type Lookup interface {
	// Lookup resolves a 10-digit NPI to a registry record. Returns
	// sentinel.ErrNotFound for unknown NPIs and sentinel.ErrUnavailable
	// (wrapped) for network or upstream failures.
	Lookup(ctx context.Context, npi string) (*Record, error)
	// Search queries the registry; see Client.Search for the heuristic.
	Search(ctx context.Context, req SearchRequest) ([]Record, error)
}

// IsValidNPI reports whether s is a 10-digit national provider identifier.
func IsValidNPI(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Client calls the NPPES registry over HTTP. One attempt per call, bounded by
// the http.Client timeout; retry policy belongs to callers that want one.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a registry client. timeout bounds the full round trip.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Lookup resolves one NPI.
func (c *Client) Lookup(ctx context.Context, npi string) (*Record, error) {
	params := url.Values{}
	params.Set("version", apiVersion)
	params.Set("number", npi)

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	records, err := parseResults(body)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return &records[0], nil
}

// Search queries the registry with heuristic query interpretation:
// a 10-digit numeric query is treated as an NPI, a query containing a space
// is split into first/last name, anything else searches by last name. The
// ambiguity is inherited from the registry API, which has no generic query
// parameter.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Record, error) {
	params := url.Values{}
	params.Set("version", apiVersion)
	params.Set("limit", "10")

	query := strings.TrimSpace(req.Query)
	switch {
	case IsValidNPI(query):
		params.Set("number", query)
	case strings.Contains(query, " "):
		parts := strings.SplitN(query, " ", 2)
		params.Set("first_name", parts[0])
		params.Set("last_name", parts[1])
	default:
		params.Set("last_name", query)
	}
	if req.State != "" {
		params.Set("state", req.State)
	}
	if req.Taxonomy != "" {
		params.Set("taxonomy_description", req.Taxonomy)
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}
	return parseResults(body)
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	reqURL := c.baseURL
	if !strings.Contains(reqURL, "?") {
		reqURL += "?" + params.Encode()
	} else {
		reqURL += "&" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read registry response: %w: %w", sentinel.ErrUnavailable, err)
	}
	return body, nil
}

// nppesEnvelope mirrors the registry's wire format.
type nppesEnvelope struct {
	ResultCount int           `json:"result_count"`
	Results     []nppesResult `json:"results"`
}

type nppesResult struct {
	Number          json.Number `json:"number"`
	EnumerationType string      `json:"enumeration_type"`
	Basic           struct {
		FirstName        string `json:"first_name"`
		LastName         string `json:"last_name"`
		OrganizationName string `json:"organization_name"`
	} `json:"basic"`
	Addresses  []Address  `json:"addresses"`
	Taxonomies []Taxonomy `json:"taxonomies"`
}

func parseResults(body []byte) ([]Record, error) {
	var envelope nppesEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode registry response: %w: %w", sentinel.ErrUnavailable, err)
	}
	records := make([]Record, 0, len(envelope.Results))
	for _, result := range envelope.Results {
		records = append(records, Record{
			NPI:             result.Number.String(),
			FullName:        fullNameOf(result),
			EnumerationType: result.EnumerationType,
			Addresses:       result.Addresses,
			Taxonomies:      result.Taxonomies,
		})
	}
	return records, nil
}

// fullNameOf prefers the individual name; organizations carry their name in a
// separate field.
func fullNameOf(result nppesResult) string {
	name := strings.TrimSpace(result.Basic.FirstName + " " + result.Basic.LastName)
	if name == "" {
		name = result.Basic.OrganizationName
	}
	return name
}
