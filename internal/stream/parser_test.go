package stream

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ctx context.Context, body string) []Chunk {
	t.Helper()
	p := NewParser(ctx, nil)
	go p.Process(io.NopCloser(strings.NewReader(body)))

	var chunks []Chunk
	for c := range p.Chunks() {
		chunks = append(chunks, c)
	}
	return chunks
}

func TestParser_Process(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		``,
		`: keep-alive`,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		`data: not json`,
		`data: {"choices":[]}`,
		`data: {"choices":[{"message":{"content":"!"}}]}`,
		`data: [DONE]`,
		`data: {"choices":[{"delta":{"content":"ignored"}}]}`,
	}, "\n")

	chunks := collect(t, context.Background(), body)
	require.Len(t, chunks, 4)
	assert.Equal(t, "Hel", chunks[0].Content)
	assert.Equal(t, "lo", chunks[1].Content)
	assert.Equal(t, "!", chunks[2].Content)
	assert.True(t, chunks[3].Done)
}

func TestParser_EndsWithoutDone(t *testing.T) {
	chunks := collect(t, context.Background(), `data: {"choices":[{"delta":{"content":"x"}}]}`)
	require.Len(t, chunks, 1)
	assert.Equal(t, "x", chunks[0].Content)
	assert.NoError(t, chunks[0].Error)
}

func TestParser_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chunks := collect(t, ctx, `data: {"choices":[{"delta":{"content":"x"}}]}`)
	for _, c := range chunks {
		assert.Empty(t, c.Content)
	}
}
