package promotion_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"delivery-dashboard/internal/model"
	"delivery-dashboard/internal/promotion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// fixedSource siempre elige el mismo índice.
type fixedSource int

func (f fixedSource) IntN(n int) int { return int(f) % n }

func TestPrefix(t *testing.T) {
	testCases := []struct {
		description string
		want        string
	}{
		{description: "summer deal", want: "SU"},
		{description: "  winter", want: "WI"},
		{description: "x", want: "X"},
		{description: "", want: promotion.PlaceholderPrefix},
		{description: "   ", want: promotion.PlaceholderPrefix},
		{description: "été", want: "ÉT"},
		{description: "42 off", want: "42"},
		{description: "ßummer", want: "SS"},
		{description: "ﬁrst", want: "FI"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got := promotion.Prefix(tc.description)
			assert.Equal(t, tc.want, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), 2)
		})
	}
}

func TestGenerateCode_Format(t *testing.T) {
	gen := promotion.NewGenerator(0, nil)

	code, err := gen.GenerateCode("Black friday", nil)
	require.NoError(t, err)
	require.Len(t, code, 2+promotion.SuffixLength)
	assert.True(t, strings.HasPrefix(code, "BL"))
	for _, c := range code[2:] {
		assert.Contains(t, promotion.Alphabet, string(c))
	}
}

func TestGenerateCode_RetriesOnCollision(t *testing.T) {
	gen := promotion.NewGenerator(3, fixedSource(0))

	_, err := gen.GenerateCode("", map[string]struct{}{"PRAAAAA": {}})
	assert.ErrorIs(t, err, promotion.ErrCodeGenerationExhausted)

	code, err := gen.GenerateCode("", map[string]struct{}{"PRBBBBB": {}})
	require.NoError(t, err)
	assert.Equal(t, "PRAAAAA", code)
}

func TestGenerateCode_ThousandUnique(t *testing.T) {
	gen := promotion.NewGenerator(promotion.DefaultMaxAttempts, nil)
	existing := make(map[string]struct{})

	for i := 0; i < 1000; i++ {
		code, err := gen.GenerateCode("Promo", existing)
		require.NoError(t, err)
		_, dup := existing[code]
		require.False(t, dup, "duplicated code %s", code)
		existing[code] = struct{}{}
	}
	assert.Len(t, existing, 1000)
}

func TestValidateWindow(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, promotion.ValidateWindow(start, start.Add(time.Hour)))
	assert.ErrorIs(t, promotion.ValidateWindow(start, start), promotion.ErrInvalidValidityWindow)
	assert.ErrorIs(t, promotion.ValidateWindow(start, start.Add(-time.Hour)), promotion.ErrInvalidValidityWindow)
}

func promo(code string, end model.Timestamp) model.Promotion {
	return model.Promotion{Code: code, DateEnd: end}
}

func TestActive(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	promos := []model.Promotion{
		promo("LATE", model.At(now.Add(10*day))),
		promo("EXPIRED", model.At(now.Add(-time.Second))),
		promo("NOW", model.At(now)),
		promo("NOEND", model.Timestamp{}),
		promo("BADEND", model.Timestamp{State: model.FieldMalformed}),
		promo("SOON_B", model.At(now.Add(day))),
		promo("SOON_A", model.At(now.Add(day))),
		// dateStart en el futuro no la excluye
		{Code: "FUTURE", DateStart: model.At(now.Add(5 * day)), DateEnd: model.At(now.Add(6 * day))},
	}

	got := promotion.Active(promos, now)

	codes := make([]string, 0, len(got))
	for _, p := range got {
		codes = append(codes, p.Code)
	}
	assert.Equal(t, []string{"NOW", "SOON_A", "SOON_B", "FUTURE", "LATE"}, codes)
	assert.Equal(t, "LATE", promos[0].Code, "input must not be reordered")
}

func TestSortByCreationAndSearch(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	promos := []model.Promotion{
		{Code: "A", Title: "Summer pizza", CreatedAt: model.At(t0)},
		{Code: "B", Title: "Winter", CreatedAt: model.At(t0.Add(time.Hour))},
		{Code: "C", Title: "Pizza night", CreatedAt: model.At(t0.Add(2 * time.Hour))},
	}

	desc := promotion.SortByCreation(promos, false)
	assert.Equal(t, "C", desc[0].Code)
	asc := promotion.SortByCreation(promos, true)
	assert.Equal(t, "A", asc[0].Code)

	found := promotion.Search(promos, "PIZZA")
	require.Len(t, found, 2)
	assert.Len(t, promotion.Search(promos, ""), 3)
}

type mockLister struct {
	mock.Mock
}

func (m *mockLister) ListDocuments(ctx context.Context, collection string, filter bson.M) ([]bson.Raw, error) {
	args := m.Called(ctx, collection, filter)
	docs, _ := args.Get(0).([]bson.Raw)
	return docs, args.Error(1)
}

func rawDocs(t *testing.T, docs ...bson.M) []bson.Raw {
	t.Helper()
	out := make([]bson.Raw, 0, len(docs))
	for _, d := range docs {
		raw, err := bson.Marshal(d)
		require.NoError(t, err)
		out = append(out, raw)
	}
	return out
}

func validRequest() promotion.CreateRequest {
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	return promotion.CreateRequest{
		Title:       "Summer",
		Description: "summer deal",
		DateStart:   start,
		DateEnd:     start.Add(30 * 24 * time.Hour),
		MaxNumber:   100,
		Percentage:  15,
	}
}

func TestLifecycle_Prepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	listErr := errors.New("db down")

	testCases := []struct {
		name         string
		req          func() promotion.CreateRequest
		mockBehavior func(l *mockLister)
		wantErr      error
		wantCode     string
	}{
		{
			name: "OK skips taken code",
			req:  validRequest,
			mockBehavior: func(l *mockLister) {
				l.On("ListDocuments", mock.Anything, model.CollectionPromotions, mock.Anything).
					Return(rawDocs(t, bson.M{"code": "SUBBBBB"}, bson.M{"title": "no code"}), nil).Once()
			},
			wantCode: "SUBBBBB",
		},
		{
			name: "invalid window",
			req: func() promotion.CreateRequest {
				r := validRequest()
				r.DateEnd = r.DateStart
				return r
			},
			mockBehavior: func(l *mockLister) {},
			wantErr:      promotion.ErrInvalidValidityWindow,
		},
		{
			name: "missing title",
			req: func() promotion.CreateRequest {
				r := validRequest()
				r.Title = ""
				return r
			},
			mockBehavior: func(l *mockLister) {},
			wantErr:      promotion.ErrInvalidRequest,
		},
		{
			name: "percentage over 100",
			req: func() promotion.CreateRequest {
				r := validRequest()
				r.Percentage = 120
				return r
			},
			mockBehavior: func(l *mockLister) {},
			wantErr:      promotion.ErrInvalidRequest,
		},
		{
			name: "store failure",
			req:  validRequest,
			mockBehavior: func(l *mockLister) {
				l.On("ListDocuments", mock.Anything, model.CollectionPromotions, mock.Anything).
					Return(nil, listErr).Once()
			},
			wantErr: listErr,
		},
		{
			name: "exhausted",
			req:  validRequest,
			mockBehavior: func(l *mockLister) {
				l.On("ListDocuments", mock.Anything, model.CollectionPromotions, mock.Anything).
					Return(rawDocs(t, bson.M{"code": "SUBBBBB"}), nil).Once()
			},
			wantErr: promotion.ErrCodeGenerationExhausted,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lister := &mockLister{}
			tc.mockBehavior(lister)

			// fixedSource(1) siempre produce "BBBBB"; alternating produce
			// "BBBBB" y luego "CCCCC".
			var src promotion.Source = fixedSource(1)
			if tc.wantCode != "" {
				src = &alternating{values: []int{1, 1, 1, 1, 1, 2, 2, 2, 2, 2}}
			}
			lc := promotion.NewLifecycle(logger, lister, promotion.NewGenerator(3, src))

			got, err := lc.Prepare(context.Background(), tc.req(), "admin-1")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				lister.AssertExpectations(t)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "SUCCCCC", got.Code)
			assert.NotEqual(t, tc.wantCode, got.Code)
			assert.Equal(t, "admin-1", got.CreatedBy)
			assert.NotEmpty(t, got.ID)
			assert.True(t, got.DateStart.Valid())
			assert.True(t, got.CreatedAt.Valid())
			lister.AssertExpectations(t)
		})
	}
}

// alternating devuelve los valores en orden, repitiendo el último.
type alternating struct {
	values []int
	i      int
}

func (a *alternating) IntN(n int) int {
	v := a.values[len(a.values)-1]
	if a.i < len(a.values) {
		v = a.values[a.i]
		a.i++
	}
	return v % n
}
