package leaderboard_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"delivery-dashboard/internal/leaderboard"
	"delivery-dashboard/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func person(id string, score *float64) model.DeliveryPerson {
	return model.DeliveryPerson{
		Person:        model.Person{ID: id, FirstName: "Rider", SecondName: id},
		ShippingScore: score,
	}
}

func score(v float64) *float64 { return &v }

func ids(entries []leaderboard.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestRank_TopThreeWithTieBreak(t *testing.T) {
	people := []model.DeliveryPerson{
		person("a", score(5)),
		person("b", score(5)),
		person("c", score(3)),
		person("d", score(9)),
		person("e", score(1)),
	}

	want := []leaderboard.Entry{
		{Rank: 1, ID: "d", Name: "Rider d", Score: 9},
		{Rank: 2, ID: "a", Name: "Rider a", Score: 5},
		{Rank: 3, ID: "b", Name: "Rider b", Score: 5},
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		shuffled := append([]model.DeliveryPerson(nil), people...)
		rng.Shuffle(len(shuffled), func(x, y int) { shuffled[x], shuffled[y] = shuffled[y], shuffled[x] })

		assert.Equal(t, want, leaderboard.Rank(shuffled, 3))
	}
}

func TestRank_DefaultSizeAndFiltering(t *testing.T) {
	people := []model.DeliveryPerson{
		person("a", nil),
		person("b", score(math.NaN())),
		person("c", score(2)),
		person("d", score(0)),
		person("e", score(7)),
		person("f", score(4)),
	}

	got := leaderboard.Rank(people, 0)
	assert.Equal(t, []string{"e", "f", "c"}, ids(got))

	got = leaderboard.Rank(people, 10)
	assert.Equal(t, []string{"e", "f", "c", "d"}, ids(got))
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	people := []model.DeliveryPerson{person("z", score(1)), person("y", score(2))}
	before := append([]model.DeliveryPerson(nil), people...)

	first := leaderboard.Rank(people, 1)
	second := leaderboard.Rank(people, 1)

	assert.Equal(t, before, people)
	assert.Equal(t, first, second)
	require.Len(t, first, 1)
	assert.Equal(t, "y", first[0].ID)
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, leaderboard.Rank(nil, 3))
}
