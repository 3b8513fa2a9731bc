package leaderboard

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"delivery-dashboard/internal/model"
)

const DefaultSize = 3

type Entry struct {
	Rank     int     `json:"rank"`
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	PhotoURL string  `json:"photoUrl,omitempty"`
	Score    float64 `json:"score"`
}

// Rank devuelve los k repartidores con mayor ShippingScore. Los empates se
// desempatan por id ascendente; sin ShippingScore no entran al ranking.
// k <= 0 usa DefaultSize. people no se modifica.
func Rank(people []model.DeliveryPerson, k int) []Entry {
	if k <= 0 {
		k = DefaultSize
	}

	scored := make([]model.DeliveryPerson, 0, len(people))
	for _, p := range people {
		if p.ShippingScore == nil || math.IsNaN(*p.ShippingScore) {
			continue
		}
		scored = append(scored, p)
	}

	slices.SortStableFunc(scored, func(a, b model.DeliveryPerson) int {
		if c := cmp.Compare(*b.ShippingScore, *a.ShippingScore); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	if len(scored) > k {
		scored = scored[:k]
	}

	out := make([]Entry, 0, len(scored))
	for i, p := range scored {
		out = append(out, Entry{
			Rank:     i + 1,
			ID:       p.ID,
			Name:     p.FullName(),
			PhotoURL: p.PhotoURL,
			Score:    *p.ShippingScore,
		})
	}
	return out
}
