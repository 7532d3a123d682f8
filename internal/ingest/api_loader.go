package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shoptalk/shoptalk/internal/fault"
)

// APILoader fetches a JSON array of products from a catalog API. Records
// missing required keys are skipped with a warning (strict mode promotes
// them to load failures); transport and status errors always fail the load.
type APILoader struct {
	url        string
	strict     bool
	httpClient *http.Client
}

func NewAPILoader(url string, strict bool) *APILoader {
	return &APILoader{
		url:    url,
		strict: strict,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (l *APILoader) Name() string { return "api" }

type apiProduct struct {
	ID          *int     `json:"id"`
	Title       string   `json:"title"`
	Price       *float64 `json:"price"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Image       string   `json:"image"`
	Rating      *struct {
		Rate  float64 `json:"rate"`
		Count int     `json:"count"`
	} `json:"rating"`
}

func (l *APILoader) Load(ctx context.Context) ([]Document, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", l.url, nil)
	if err != nil {
		return nil, fault.Wrap(fault.Ingestion, err, "build api request")
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.Ingestion, err, "fetch %s", l.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.New(fault.Ingestion, "api returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Wrap(fault.Ingestion, err, "read api response")
	}

	var products []apiProduct
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fault.Wrap(fault.Ingestion, err, "parse api response")
	}

	docs := make([]Document, 0, len(products))
	for i, p := range products {
		if missing := p.missingKey(); missing != "" {
			if l.strict {
				return nil, fault.New(fault.Ingestion, "api record %d missing key %q", i, missing)
			}
			slog.Warn("skipping api record", "index", i, "missing_key", missing)
			continue
		}

		text := fmt.Sprintf("%s. Category: %s. Description: %s. Price: %.2f. Rating: %.1f based on %d reviews.",
			p.Title, p.Category, p.Description, *p.Price, p.Rating.Rate, p.Rating.Count)

		docs = append(docs, Document{
			Text: text,
			Metadata: map[string]any{
				"source":       "api",
				"id":           *p.ID,
				"title":        p.Title,
				"price":        *p.Price,
				"category":     p.Category,
				"image":        p.Image,
				"rating":       p.Rating.Rate,
				"rating_count": p.Rating.Count,
			},
		})
	}

	slog.Info("loaded api documents", "url", l.url, "fetched", len(products), "kept", len(docs))
	return docs, nil
}

func (p apiProduct) missingKey() string {
	switch {
	case p.ID == nil:
		return "id"
	case p.Title == "":
		return "title"
	case p.Price == nil:
		return "price"
	case p.Description == "":
		return "description"
	case p.Category == "":
		return "category"
	case p.Rating == nil:
		return "rating"
	default:
		return ""
	}
}
