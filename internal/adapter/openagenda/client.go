// Package openagenda fetches events from the public events catalog. The
// catalog paginates with an opaque "after" token and filters on the
// updatedAt field, which is what makes incremental rebuilds cheap.
package openagenda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"eventail/internal/corpus"
)

var ErrCatalogUnavailable = errors.New("openagenda: catalog unavailable")

type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	client   *http.Client
}

func NewClient(baseURL, apiKey string, pageSize int) *Client {
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		pageSize: pageSize,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type catalogEvent struct {
	UID             json.Number `json:"uid"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	LongDescription string      `json:"longDescription"`
	Conditions      string      `json:"conditions"`
	Location        struct {
		City       string  `json:"city"`
		Region     string  `json:"region"`
		PostalCode string  `json:"postalCode"`
		Latitude   float64 `json:"latitude"`
		Longitude  float64 `json:"longitude"`
	} `json:"location"`
	FirstTiming struct {
		Begin time.Time `json:"begin"`
	} `json:"firstTiming"`
	LastTiming struct {
		End time.Time `json:"end"`
	} `json:"lastTiming"`
	Keywords  []string  `json:"keywords"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type catalogPage struct {
	Events []catalogEvent `json:"events"`
	Total  int            `json:"total"`
	After  []string       `json:"after"`
}

// FetchUpdatedSince pulls every event modified after the watermark,
// following pagination until the catalog returns no continuation token.
func (c *Client) FetchUpdatedSince(ctx context.Context, since time.Time) ([]corpus.Event, error) {
	var events []corpus.Event
	var after []string

	for page := 0; ; page++ {
		result, err := c.fetchPage(ctx, since, after)
		if err != nil {
			return nil, err
		}
		for _, ce := range result.Events {
			events = append(events, toEvent(ce))
		}
		slog.DebugContext(ctx, "fetched catalog page",
			"page", page, "events", len(result.Events), "total", result.Total)

		if len(result.After) == 0 || len(result.Events) == 0 {
			return events, nil
		}
		after = result.After
	}
}

func (c *Client) fetchPage(ctx context.Context, since time.Time, after []string) (*catalogPage, error) {
	q := url.Values{}
	q.Set("size", strconv.Itoa(c.pageSize))
	q.Set("detailed", "1")
	if !since.IsZero() {
		q.Set("updatedAt[gte]", since.UTC().Format(time.RFC3339))
	}
	for _, a := range after {
		q.Add("after[]", a)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrCatalogUnavailable, resp.StatusCode)
	}

	var page catalogPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return &page, nil
}

func toEvent(ce catalogEvent) corpus.Event {
	return corpus.Event{
		UID:             ce.UID.String(),
		Title:           ce.Title,
		Description:     ce.Description,
		LongDescription: ce.LongDescription,
		Conditions:      ce.Conditions,
		City:            ce.Location.City,
		Region:          ce.Location.Region,
		PostalCode:      ce.Location.PostalCode,
		Latitude:        ce.Location.Latitude,
		Longitude:       ce.Location.Longitude,
		DateStart:       ce.FirstTiming.Begin,
		DateEnd:         ce.LastTiming.End,
		Keywords:        ce.Keywords,
		UpdatedAt:       ce.UpdatedAt,
	}
}
