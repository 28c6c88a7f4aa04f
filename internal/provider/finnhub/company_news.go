package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"time"

	"marketdata/internal/errs"
	"marketdata/internal/provider"
)

// newsWindowDays is how far back company news is requested.
const newsWindowDays = 30

type companyNewsItem struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"`
	Image    string `json:"image"`
}

// News retrieves company news for the symbol over the last 30 days, capped
// at limit.
func (c *Client) News(ctx context.Context, symbol string, limit int) ([]provider.NewsItem, error) {
	now := time.Now().UTC()
	query := maps.Clone(c.query)
	query.Set("symbol", symbol)
	query.Set("from", now.AddDate(0, 0, -newsWindowDays).Format("2006-01-02"))
	query.Set("to", now.Format("2006-01-02"))

	u := fmt.Sprintf("%s/company-news?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Unavailable(Name, symbol, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break
	case http.StatusTooManyRequests:
		return nil, errs.RateLimited(Name, symbol, 0, nil)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, errs.Unavailable(Name, symbol, fmt.Errorf("unauthorized"))
	default:
		return nil, errs.Unavailable(Name, symbol, fmt.Errorf("unexpected status code: %d", res.StatusCode))
	}

	var raw []companyNewsItem
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, errs.Unavailable(Name, symbol, fmt.Errorf("decoding news response: %w", err))
	}

	items := make([]provider.NewsItem, 0, min(len(raw), limit))
	for _, n := range raw {
		if len(items) >= limit {
			break
		}
		item := provider.NewsItem{
			Headline: n.Headline,
			Summary:  n.Summary,
			Source:   n.Source,
			URL:      n.URL,
			Image:    n.Image,
		}
		if item.Summary == "" {
			item.Summary = n.Headline
		}
		if n.Datetime > 0 {
			item.PublishedAt = time.Unix(n.Datetime, 0).UTC()
		}
		items = append(items, item)
	}
	return items, nil
}
