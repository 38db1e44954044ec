package translator

import (
	"context"
	"fmt"
	"strings"
)

// SplitSegments breaks chapter text into chunks of at most size runes,
// preferring paragraph boundaries so no paragraph is cut mid-sentence unless
// it alone exceeds the segment size. size <= 0 returns the text unchanged.
func SplitSegments(text string, size int) []string {
	if size <= 0 || len([]rune(text)) <= size {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	segments := make([]string, 0, len(paragraphs))
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			segments = append(segments, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, paragraph := range paragraphs {
		paragraphLen := len([]rune(paragraph))

		if paragraphLen > size {
			flush()
			for _, chunk := range splitRunes(paragraph, size) {
				segments = append(segments, chunk)
			}
			continue
		}

		// +2 accounts for the paragraph separator restored on join.
		if currentLen > 0 && currentLen+2+paragraphLen > size {
			flush()
		}
		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(paragraph)
		currentLen += paragraphLen
	}
	flush()

	if len(segments) == 0 {
		return []string{text}
	}
	return segments
}

func splitRunes(text string, size int) []string {
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// translateSegmented runs one provider call per segment and rejoins the
// results with paragraph separators. Segments are translated strictly in
// order; the first failure aborts the whole request.
func translateSegmented(
	ctx context.Context,
	req Request,
	single func(ctx context.Context, req Request) (string, error),
) (string, error) {
	segments := SplitSegments(req.Text, req.SegmentSize)
	if len(segments) == 1 {
		return single(ctx, req)
	}

	translated := make([]string, 0, len(segments))
	for i, segment := range segments {
		segmentReq := req
		segmentReq.Text = segment
		out, err := single(ctx, segmentReq)
		if err != nil {
			return "", fmt.Errorf("segment %d of %d: %w", i+1, len(segments), err)
		}
		translated = append(translated, out)
	}
	return strings.Join(translated, "\n\n"), nil
}
