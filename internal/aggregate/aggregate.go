// Package aggregate agrupa importes por día, semana o mes.
package aggregate

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"delivery-dashboard/internal/model"

	"github.com/shopspring/decimal"
)

type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

var ErrUnknownGranularity = errors.New("granularidad desconocida")

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Day, Week, Month:
		return g, nil
	case "":
		return Day, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
}

// Point es un importe fechado. Source identifica el registro de origen en los logs.
type Point struct {
	At     model.Timestamp
	Amount decimal.Decimal
	Source string
}

type Bucket struct {
	Key   string          `json:"key"`
	Label string          `json:"label"`
	Start time.Time       `json:"start"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

type Aggregator struct {
	logger *slog.Logger
	loc    *time.Location
}

// New crea un agregador que calcula los buckets en loc (UTC si es nil).
func New(logger *slog.Logger, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{
		logger: logger.With(slog.String("component", "aggregate")),
		loc:    loc,
	}
}

// Aggregate devuelve un bucket por intervalo no vacío, ordenado por el
// instante de inicio del intervalo. Los puntos sin fecha válida se
// descartan y se registran en el log.
func (a *Aggregator) Aggregate(points []Point, g Granularity) ([]Bucket, error) {
	if g != Day && g != Week && g != Month {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
	}

	byKey := make(map[string]*Bucket)
	for _, p := range points {
		if !p.At.Valid() {
			a.logger.Warn("skipping record without a usable timestamp",
				slog.String("source", p.Source),
				slog.String("state", p.At.State.String()),
			)
			continue
		}

		key, label, start := a.bucketOf(p.At.Time, g)
		b, ok := byKey[key]
		if !ok {
			b = &Bucket{Key: key, Label: label, Start: start, Total: decimal.Zero}
			byKey[key] = b
		}
		b.Total = b.Total.Add(p.Amount)
		b.Count++
	}

	out := make([]Bucket, 0, len(byKey))
	for _, b := range byKey {
		b.Total = b.Total.Round(2)
		out = append(out, *b)
	}
	slices.SortFunc(out, func(x, y Bucket) int {
		if c := x.Start.Compare(y.Start); c != 0 {
			return c
		}
		return strings.Compare(x.Key, y.Key)
	})
	return out, nil
}

func (a *Aggregator) bucketOf(t time.Time, g Granularity) (key, label string, start time.Time) {
	t = t.In(a.loc)
	year := t.Year()

	switch g {
	case Week:
		// semana 1 empieza el 1 de enero; aritmética sobre el día del año
		week := (t.YearDay()-1)/7 + 1
		start = time.Date(year, time.January, 1+(week-1)*7, 0, 0, 0, 0, a.loc)
		return fmt.Sprintf("%04d-W%02d", year, week), fmt.Sprintf("Week %d, %d", week, year), start
	case Month:
		start = time.Date(year, t.Month(), 1, 0, 0, 0, 0, a.loc)
		return fmt.Sprintf("%04d-%02d", year, int(t.Month())), fmt.Sprintf("%s %d", t.Month(), year), start
	default:
		start = time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, a.loc)
		key = start.Format(time.DateOnly)
		return key, key, start
	}
}

// PointsFromOrders toma DatePAssCommande y TotalAmount de cada orden.
func PointsFromOrders(orders []model.Order) []Point {
	points := make([]Point, 0, len(orders))
	for _, o := range orders {
		points = append(points, Point{
			At:     o.PlacedAt,
			Amount: decimal.NewFromFloat(o.TotalAmount),
			Source: o.ID,
		})
	}
	return points
}
