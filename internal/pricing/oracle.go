// Package pricing wraps the external price-prediction service. The oracle
// is advisory: any failure falls back to a local heuristic, and nothing on
// the purchase path waits on it.
package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

type QuoteRequest struct {
	FromAirport     string
	ToAirport       string
	DepartureDate   time.Time
	DurationMinutes int
}

type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
}

// NewClient builds an oracle client. An empty baseURL disables the remote
// call entirely and quotes come straight from the heuristic.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// SuggestPrice returns a per-seat cash price for the route. Never fails:
// oracle errors are logged and the heuristic answers instead.
func (c *Client) SuggestPrice(ctx context.Context, q QuoteRequest) decimal.Decimal {
	if c.baseURL != "" {
		price, err := c.predict(ctx, q)
		if err == nil {
			return price
		}
		log.Printf("price oracle unavailable, using heuristic: %v", err)
	}
	return Heuristic(q, c.now())
}

type predictRequest struct {
	FromAirport     string `json:"fromAirport"`
	ToAirport       string `json:"toAirport"`
	DepartureDate   string `json:"departureDate"`
	DurationMinutes int    `json:"durationMinutes"`
}

type predictResponse struct {
	Success        bool    `json:"success"`
	PredictedPrice float64 `json:"predictedPrice"`
	Error          string  `json:"error"`
}

func (c *Client) predict(ctx context.Context, q QuoteRequest) (decimal.Decimal, error) {
	body, err := json.Marshal(predictRequest{
		FromAirport:     q.FromAirport,
		ToAirport:       q.ToAirport,
		DepartureDate:   q.DepartureDate.Format("2006-01-02"),
		DurationMinutes: q.DurationMinutes,
	})
	if err != nil {
		return decimal.Zero, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return decimal.Zero, err
	}
	if !pr.Success {
		return decimal.Zero, fmt.Errorf("oracle rejected request: %s", pr.Error)
	}
	return decimal.NewFromFloat(pr.PredictedPrice).Round(2), nil
}
