package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministic(t *testing.T) {
	e := NewEmbedder(384)
	a, err := e.EmbedQuery(context.Background(), "UPI payment to Zomato")
	require.NoError(t, err)
	b, err := e.EmbedQuery(context.Background(), "UPI payment to Zomato")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDimension(t *testing.T) {
	e := NewEmbedder(0)
	assert.Equal(t, 384, e.Dimension(), "zero falls back to the default width")
	v, err := e.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, v, 384)
}

func TestVectorsAreUnitLength(t *testing.T) {
	e := NewEmbedder(128)
	v, err := e.EmbedQuery(context.Background(), "rent transfer for march")
	require.NoError(t, err)
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-9)
}

func TestSimilarTextsScoreHigherThanUnrelated(t *testing.T) {
	e := NewEmbedder(384)
	ctx := context.Background()
	q, _ := e.EmbedQuery(ctx, "zomato food order")
	food, _ := e.EmbedQuery(ctx, "Zomato order lunch delivery")
	rent, _ := e.EmbedQuery(ctx, "monthly rent transfer landlord")

	assert.Greater(t, dot(q, food), dot(q, rent))
}

func TestEmptyTextYieldsZeroVector(t *testing.T) {
	e := NewEmbedder(16)
	v, err := e.EmbedQuery(context.Background(), "")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestBatchPreservesOrder(t *testing.T) {
	e := NewEmbedder(64)
	ctx := context.Background()
	vecs, err := e.EmbedDocuments(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	alpha, _ := e.EmbedQuery(ctx, "alpha")
	beta, _ := e.EmbedQuery(ctx, "beta")
	assert.Equal(t, alpha, vecs[0])
	assert.Equal(t, beta, vecs[1])
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
