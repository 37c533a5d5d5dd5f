package llms

import (
	"context"
	"fmt"
	"strings"
)

type Stream interface {
	Chunks(context.Context) func(func(StreamChunk, error) bool)
}

type StreamChunk interface {
	FinishReason() *string
}

type StreamContentChunk interface {
	StreamChunk
	Content() string
}

type StreamUsageChunk interface {
	StreamChunk
	Usage() Usage
}

// FinishReasonContentFilter is the finish reason OpenAI compatible providers
// report when the reply was withheld.
const FinishReasonContentFilter = "content_filter"

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int

	// QueueTime represents the time it took to queue the request.
	//
	// Note: This might be just an approximation.
	QueueTime float64
	// TotalTime represents the total time it took to complete the request.
	//
	// Note: This might be just an approximation.
	TotalTime float64
}

// Collect drains stream and joins its content. A content filter finish
// reason turns into [ErrContentBlocked].
func Collect(ctx context.Context, stream Stream) (string, Usage, error) {
	var (
		text  strings.Builder
		usage Usage
	)
	for chunk, err := range stream.Chunks(ctx) {
		if err != nil {
			return "", usage, err
		}

		switch c := chunk.(type) {
		case StreamContentChunk:
			text.WriteString(c.Content())
		case StreamUsageChunk:
			usage = c.Usage()
		}

		if reason := chunk.FinishReason(); reason != nil && *reason == FinishReasonContentFilter {
			return "", usage, fmt.Errorf("%w: finish reason %s", ErrContentBlocked, *reason)
		}
	}

	return text.String(), usage, nil
}
