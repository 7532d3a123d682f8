package ingest

import (
	"context"
	"encoding/csv"
	"log/slog"
	"os"

	"github.com/shoptalk/shoptalk/internal/fault"
)

// CSVLoader reads product reviews from a CSV file. The header must contain
// product_title, review and rating; a missing column fails the whole load.
// In strict mode (the default) a malformed row also fails the load, in
// lenient mode it is skipped with a warning.
type CSVLoader struct {
	path   string
	strict bool
}

func NewCSVLoader(path string, strict bool) *CSVLoader {
	return &CSVLoader{path: path, strict: strict}
}

func (l *CSVLoader) Name() string { return "csv" }

func (l *CSVLoader) Load(ctx context.Context) ([]Document, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fault.Wrap(fault.Ingestion, err, "open csv %s", l.path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fault.Wrap(fault.Ingestion, err, "read csv header")
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"product_title", "review", "rating"} {
		if _, ok := cols[required]; !ok {
			return nil, fault.New(fault.Ingestion, "csv missing required column %q", required)
		}
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fault.Wrap(fault.Ingestion, err, "read csv rows")
	}

	docs := make([]Document, 0, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		title, review, rating, ok := pick(row, cols)
		if !ok {
			if l.strict {
				return nil, fault.New(fault.Ingestion, "csv row %d missing required fields", i+1)
			}
			slog.Warn("skipping malformed csv row", "row", i+1)
			continue
		}

		docs = append(docs, Document{
			Text: review,
			Metadata: map[string]any{
				"source":       "csv",
				"product_name": title,
				"rating":       rating,
			},
		})
	}

	slog.Info("loaded csv documents", "path", l.path, "count", len(docs))
	return docs, nil
}

func pick(row []string, cols map[string]int) (title, review, rating string, ok bool) {
	get := func(name string) (string, bool) {
		i := cols[name]
		if i >= len(row) || row[i] == "" {
			return "", false
		}
		return row[i], true
	}

	title, ok1 := get("product_title")
	review, ok2 := get("review")
	rating, ok3 := get("rating")
	return title, review, rating, ok1 && ok2 && ok3
}
