// Package promotion genera códigos de promoción y calcula qué promociones
// siguen vigentes.
package promotion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"delivery-dashboard/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	ErrInvalidValidityWindow = errors.New("la fecha de inicio debe ser anterior a la fecha de fin")
	ErrInvalidRequest        = errors.New("solicitud de promoción inválida")
)

// Lister es la parte del document store que consulta el lifecycle.
type Lister interface {
	ListDocuments(ctx context.Context, collection string, filter bson.M) ([]bson.Raw, error)
}

type CreateRequest struct {
	Title       string    `validate:"required"`
	Description string    `validate:"required"`
	DateStart   time.Time `validate:"required"`
	DateEnd     time.Time `validate:"required"`
	MaxNumber   int       `validate:"gt=0"`
	Percentage  float64   `validate:"gt=0,lte=100"`
	Image       string    `validate:"omitempty,url"`
}

// ValidateWindow rechaza ventanas vacías o invertidas; no las corrige.
func ValidateWindow(start, end time.Time) error {
	if !start.Before(end) {
		return fmt.Errorf("%w: %s >= %s", ErrInvalidValidityWindow,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

// Active filtra las promociones con now <= dateEnd y las ordena por dateEnd
// ascendente. dateStart no se controla.
func Active(promos []model.Promotion, now time.Time) []model.Promotion {
	out := make([]model.Promotion, 0, len(promos))
	for _, p := range promos {
		if p.DateEnd.Valid() && !now.After(p.DateEnd.Time) {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Promotion) int {
		if c := a.DateEnd.Time.Compare(b.DateEnd.Time); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
	return out
}

// SortByCreation ordena por fecha de creación; sin fecha van al final en
// orden descendente y al principio en ascendente.
func SortByCreation(promos []model.Promotion, ascending bool) []model.Promotion {
	out := slices.Clone(promos)
	slices.SortStableFunc(out, func(a, b model.Promotion) int {
		c := createdUnix(a) - createdUnix(b)
		if !ascending {
			c = -c
		}
		switch {
		case c < 0:
			return -1
		case c > 0:
			return 1
		}
		return 0
	})
	return out
}

func createdUnix(p model.Promotion) int64 {
	if !p.CreatedAt.Valid() {
		return 0
	}
	return p.CreatedAt.Time.Unix()
}

// Search filtra por título sin distinguir mayúsculas.
func Search(promos []model.Promotion, query string) []model.Promotion {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return promos
	}
	out := make([]model.Promotion, 0, len(promos))
	for _, p := range promos {
		if strings.Contains(strings.ToLower(p.Title), q) {
			out = append(out, p)
		}
	}
	return out
}

type Lifecycle struct {
	store    Lister
	gen      *Generator
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewLifecycle(logger *slog.Logger, store Lister, gen *Generator) *Lifecycle {
	return &Lifecycle{
		store:    store,
		gen:      gen,
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "promotion")),
		now:      time.Now,
	}
}

// Prepare valida la solicitud, genera un código que no exista todavía y
// devuelve el documento listo para guardar. No escribe en el store: la
// unicidad es best-effort entre la lectura y la escritura del llamador.
func (l *Lifecycle) Prepare(ctx context.Context, req CreateRequest, actorID string) (model.Promotion, error) {
	if err := l.validate.Struct(req); err != nil {
		return model.Promotion{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := ValidateWindow(req.DateStart, req.DateEnd); err != nil {
		return model.Promotion{}, err
	}

	existing, err := l.existingCodes(ctx)
	if err != nil {
		return model.Promotion{}, err
	}

	code, err := l.gen.GenerateCode(req.Description, existing)
	if err != nil {
		l.logger.Error("promotion code generation exhausted",
			slog.Int("existing_codes", len(existing)), slog.Any("error", err))
		return model.Promotion{}, err
	}

	return model.Promotion{
		ID:          uuid.NewString(),
		Code:        code,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DateStart:   model.At(req.DateStart.UTC()),
		DateEnd:     model.At(req.DateEnd.UTC()),
		Percentage:  req.Percentage,
		MaxNumber:   req.MaxNumber,
		Image:       req.Image,
		CreatedAt:   model.At(l.now().UTC()),
		CreatedBy:   actorID,
	}, nil
}

func (l *Lifecycle) existingCodes(ctx context.Context) (map[string]struct{}, error) {
	docs, err := l.store.ListDocuments(ctx, model.CollectionPromotions, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list promotions: %w", err)
	}

	codes := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		rv, err := doc.LookupErr("code")
		if err != nil {
			continue
		}
		if code, ok := rv.StringValueOK(); ok && code != "" {
			codes[code] = struct{}{}
		}
	}
	return codes, nil
}
