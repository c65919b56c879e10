// Package telemetry reads raw readings from the wide telemetry table: one
// timestamp column plus one column per stored series.
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/bldgsense/sensoria/internal/timerange"
)

// FetchError is fatal for the request and reported to the caller verbatim.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("telemetry fetch failed: %v", e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// Point is one reading.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

type Fetcher struct {
	db         *sql.DB
	table      string
	timeColumn string
	logger     *zap.Logger
}

func NewFetcher(db *sql.DB, table, timeColumn string, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		db:         db,
		table:      table,
		timeColumn: timeColumn,
		logger:     logger.Named("telemetry"),
	}
}

// Fetch issues a single window-bounded query selecting exactly the requested
// series columns. With a single series, a non-null predicate on that column
// cuts the scan. Never retried; errors surface verbatim.
func (f *Fetcher) Fetch(ctx context.Context, seriesIDs []string, w timerange.Window) (map[string][]Point, error) {
	if len(seriesIDs) == 0 {
		return map[string][]Point{}, nil
	}

	cols := make([]string, 0, len(seriesIDs)+1)
	cols = append(cols, pq.QuoteIdentifier(f.timeColumn))
	for _, id := range seriesIDs {
		cols = append(cols, pq.QuoteIdentifier(id))
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s >= $1 AND %s < $2",
		strings.Join(cols, ", "),
		pq.QuoteIdentifier(f.table),
		pq.QuoteIdentifier(f.timeColumn),
		pq.QuoteIdentifier(f.timeColumn),
	)
	if len(seriesIDs) == 1 {
		query += fmt.Sprintf(" AND %s IS NOT NULL", pq.QuoteIdentifier(seriesIDs[0]))
	}
	query += fmt.Sprintf(" ORDER BY %s", pq.QuoteIdentifier(f.timeColumn))

	rows, err := f.db.QueryContext(ctx, query, w.Start, w.End)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer rows.Close()

	out := make(map[string][]Point, len(seriesIDs))
	for _, id := range seriesIDs {
		out[id] = nil
	}

	values := make([]sql.NullFloat64, len(seriesIDs))
	dest := make([]interface{}, 0, len(seriesIDs)+1)
	var ts time.Time
	dest = append(dest, &ts)
	for i := range values {
		dest = append(dest, &values[i])
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, &FetchError{Err: err}
		}
		for i, id := range seriesIDs {
			if values[i].Valid {
				out[id] = append(out[id], Point{Time: ts, Value: values[i].Float64})
			}
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, &FetchError{Err: err}
	}

	f.logger.Debug("telemetry fetched",
		zap.Int("series", len(seriesIDs)),
		zap.Int("rows", count),
		zap.String("start", w.StartString()),
		zap.String("end", w.EndString()))
	return out, nil
}
