package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingAPI is a mock implementation of EmbeddingAPI
type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func newTestClient(api EmbeddingAPI) *Client {
	return &Client{api: api, dimensions: DefaultEmbeddingDimensions}
}

func vectorOf(seed float32) []float32 {
	v := make([]float32, DefaultEmbeddingDimensions)
	v[0] = seed
	return v
}

func TestClient_GenerateEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the embedding for a text", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		client := newTestClient(mockAPI)

		mockAPI.On("CreateEmbeddings", mock.Anything, []string{"monthly grocery spend"}).
			Return([][]float32{vectorOf(0.4)}, nil)

		embedding, err := client.GenerateEmbedding(ctx, "monthly grocery spend")

		require.NoError(t, err)
		assert.Len(t, embedding, DefaultEmbeddingDimensions)
		assert.Equal(t, float32(0.4), embedding[0])
	})

	t.Run("rejects empty text", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		client := newTestClient(mockAPI)

		_, err := client.GenerateEmbedding(ctx, "")

		assert.ErrorIs(t, err, ErrEmptyText)
		mockAPI.AssertNotCalled(t, "CreateEmbeddings")
	})

	t.Run("normalizes literal escaped newlines before embedding", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		client := newTestClient(mockAPI)

		mockAPI.On("CreateEmbeddings", mock.Anything, []string{"line one line two"}).
			Return([][]float32{vectorOf(0.1)}, nil)

		_, err := client.GenerateEmbedding(ctx, `line one\nline two`)

		require.NoError(t, err)
		mockAPI.AssertExpectations(t)
	})

	t.Run("rejects wrong dimensions", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		client := newTestClient(mockAPI)

		mockAPI.On("CreateEmbeddings", mock.Anything, mock.Anything).
			Return([][]float32{{0.1, 0.2, 0.3}}, nil)

		_, err := client.GenerateEmbedding(ctx, "some text")

		assert.ErrorIs(t, err, ErrWrongDimensions)
	})

	t.Run("wraps provider errors", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		client := newTestClient(mockAPI)

		apiErr := errors.New("api unavailable")
		mockAPI.On("CreateEmbeddings", mock.Anything, mock.Anything).
			Return(nil, apiErr)

		_, err := client.GenerateEmbedding(ctx, "some text")

		assert.ErrorIs(t, err, apiErr)
	})
}

func TestClient_GenerateEmbeddings(t *testing.T) {
	ctx := context.Background()

	t.Run("returns embeddings in input order", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		client := newTestClient(mockAPI)

		texts := []string{"first chunk", "second chunk", "third chunk"}
		mockAPI.On("CreateEmbeddings", mock.Anything, texts).
			Return([][]float32{vectorOf(1), vectorOf(2), vectorOf(3)}, nil)

		embeddings, err := client.GenerateEmbeddings(ctx, texts)

		require.NoError(t, err)
		require.Len(t, embeddings, 3)
		assert.Equal(t, float32(1), embeddings[0][0])
		assert.Equal(t, float32(2), embeddings[1][0])
		assert.Equal(t, float32(3), embeddings[2][0])
	})

	t.Run("rejects an empty batch", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		client := newTestClient(mockAPI)

		_, err := client.GenerateEmbeddings(ctx, nil)

		assert.ErrorIs(t, err, ErrEmptyBatch)
	})

	t.Run("rejects a batch containing an empty text", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		client := newTestClient(mockAPI)

		_, err := client.GenerateEmbeddings(ctx, []string{"fine", ""})

		assert.ErrorIs(t, err, ErrEmptyText)
		mockAPI.AssertNotCalled(t, "CreateEmbeddings")
	})

	t.Run("fails the whole batch on count mismatch", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		client := newTestClient(mockAPI)

		mockAPI.On("CreateEmbeddings", mock.Anything, mock.Anything).
			Return([][]float32{vectorOf(1)}, nil)

		_, err := client.GenerateEmbeddings(ctx, []string{"one", "two"})

		assert.ErrorIs(t, err, ErrBatchSizeMismatch)
	})

	t.Run("fails the whole batch on a bad vector", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		client := newTestClient(mockAPI)

		mockAPI.On("CreateEmbeddings", mock.Anything, mock.Anything).
			Return([][]float32{vectorOf(1), {0.1, 0.2}}, nil)

		_, err := client.GenerateEmbeddings(ctx, []string{"one", "two"})

		assert.ErrorIs(t, err, ErrWrongDimensions)
	})

	t.Run("fails the whole batch on provider error", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		client := newTestClient(mockAPI)

		apiErr := errors.New("timeout")
		mockAPI.On("CreateEmbeddings", mock.Anything, mock.Anything).
			Return(nil, apiErr)

		_, err := client.GenerateEmbeddings(ctx, []string{"one", "two"})

		assert.ErrorIs(t, err, apiErr)
	})
}
