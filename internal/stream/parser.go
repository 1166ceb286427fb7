package stream

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// ChatResponse is one event of a chat completion stream.
type ChatResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Process reads body until the end of the stream, the [DONE] event, or
// cancellation, and closes both the body and the chunk channel.
func (p *Parser) Process(body io.ReadCloser) {
	defer close(p.chunks)
	defer body.Close()

	scanner := bufio.NewScanner(bufio.NewReaderSize(body, 4096))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := p.ctx.Err(); err != nil {
			p.send(Chunk{Error: err})
			return
		}

		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			p.send(Chunk{Done: true})
			return
		}

		var event ChatResponse
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			p.logger.Debug("skipping malformed stream event", "data", data, "err", err)
			continue
		}
		if len(event.Choices) == 0 {
			continue
		}

		content := event.Choices[0].Delta.Content
		if content == "" {
			content = event.Choices[0].Message.Content
		}
		if content != "" {
			if !p.send(Chunk{Content: content}) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		p.send(Chunk{Error: err})
	}
}

// send delivers a chunk unless the context is cancelled first.
func (p *Parser) send(c Chunk) bool {
	select {
	case p.chunks <- c:
		return true
	case <-p.ctx.Done():
		return false
	}
}
