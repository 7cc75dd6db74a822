package selection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marco/recofilms/internal/catalog"
)

func TestRecommendations_ReplaceNotMerge(t *testing.T) {
	var r Recommendations

	gen := r.Begin(catalog.RecommendationRequest{TopK: 20})
	require.True(t, r.Apply(gen, []catalog.Movie{{ID: 1}, {ID: 2}}, nil))

	gen = r.Begin(catalog.RecommendationRequest{TopK: 20})
	assert.True(t, r.Snapshot().Loading)
	require.True(t, r.Apply(gen, []catalog.Movie{{ID: 3}}, nil))

	snap := r.Snapshot()
	require.Len(t, snap.Movies, 1)
	assert.Equal(t, 3, snap.Movies[0].ID)
	assert.False(t, snap.Loading)
}

func TestRecommendations_StaleDropped(t *testing.T) {
	var r Recommendations

	first := r.Begin(catalog.RecommendationRequest{})
	second := r.Begin(catalog.RecommendationRequest{})

	assert.False(t, r.Apply(first, []catalog.Movie{{ID: 1}}, nil))
	assert.True(t, r.Apply(second, []catalog.Movie{{ID: 2}}, nil))
	assert.Equal(t, 2, r.Snapshot().Movies[0].ID)
}

func TestRecommendations_ErrorKeepsPrevious(t *testing.T) {
	var r Recommendations

	gen := r.Begin(catalog.RecommendationRequest{})
	r.Apply(gen, []catalog.Movie{{ID: 1}}, nil)

	gen = r.Begin(catalog.RecommendationRequest{})
	r.Apply(gen, nil, errors.New("boom"))

	snap := r.Snapshot()
	var of *catalog.OperationFailed
	require.ErrorAs(t, snap.Err, &of)
	assert.Equal(t, catalog.OpRecommend, of.Op)
	assert.Len(t, snap.Movies, 1)

	gen = r.Begin(catalog.RecommendationRequest{})
	r.Apply(gen, []catalog.Movie{{ID: 5}}, nil)
	assert.NoError(t, r.Snapshot().Err)
}

func TestRecommendations_ClearFencesInFlight(t *testing.T) {
	var r Recommendations

	gen := r.Begin(catalog.RecommendationRequest{})
	r.Clear()
	assert.False(t, r.Apply(gen, []catalog.Movie{{ID: 1}}, nil))
	assert.Empty(t, r.Snapshot().Movies)
	assert.Nil(t, r.Snapshot().Request)
}
