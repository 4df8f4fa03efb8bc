package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedderDeterministic(t *testing.T) {
	// Given the same text embedded twice
	e := NewStaticEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "Die Gnade Gottes in der Rechtfertigungslehre")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Die Gnade Gottes in der Rechtfertigungslehre")
	require.NoError(t, err)

	// Then the vectors are identical
	assert.Equal(t, a, b)
	assert.Len(t, a, StaticDimensions)
}

func TestStaticEmbedderDistinguishesTexts(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "doctrine of grace and justification")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "textual criticism of the Septuagint")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestStaticEmbedderUnitLength(t *testing.T) {
	e := NewStaticEmbedder()

	vec, err := e.Embed(context.Background(), "ἀγάπη λόγος χάρις")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestStaticEmbedderEmptyText(t *testing.T) {
	e := NewStaticEmbedder()

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)

	assert.Equal(t, make([]float32, StaticDimensions), vec)
}

func TestStaticEmbedderBatchOrder(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	texts := []string{"erste", "zweite", "dritte"}
	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestStaticEmbedderClosed(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestStaticEmbedderMetadata(t *testing.T) {
	e := NewStaticEmbedder()
	assert.Equal(t, StaticDimensions, e.Dimensions())
	assert.Equal(t, "static-hash", e.ModelName())
	assert.True(t, e.Available(context.Background()))
}
