package stream

import (
	"context"
	"log/slog"
)

// Chunk represents a processed piece of content from the stream
type Chunk struct {
	Content string
	Done    bool
	Error   error
}

// Parser turns a server-sent event body into chunks
type Parser struct {
	ctx    context.Context
	chunks chan Chunk
	logger *slog.Logger
}

func NewParser(ctx context.Context, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{
		ctx:    ctx,
		chunks: make(chan Chunk),
		logger: logger,
	}
}

func (p *Parser) Chunks() <-chan Chunk {
	return p.chunks
}
