// Copyright 2025 Semaphoric Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunk

import (
	"strings"

	"github.com/semaphoric/vecmig/core"
)

const (
	// DefaultMaxChars is the default upper bound on chunk length.
	DefaultMaxChars = 2000
)

// Split splits normalized text into segments of at most maxChars characters
// using greedy word wrap: whitespace-delimited tokens are accumulated until
// the next token would overflow, the accumulated segment is emitted, and
// accumulation restarts from the overflowing token. There is no character
// overlap between segments; every character of the normalized input appears
// in exactly one segment.
//
// A single token longer than maxChars is hard-split near maxChars, backed
// off to the nearest rune boundary so segments stay valid UTF-8. Empty input
// yields a single empty segment; downstream logic classifies it as too short
// to embed.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	words := strings.Fields(text)
	segments := make([]string, 0, len(text)/maxChars+1)

	var b strings.Builder
	for _, word := range words {
		// Hard-split tokens that cannot fit in any segment. The cut backs
		// off to a rune boundary so multibyte text stays valid UTF-8.
		for len(word) > maxChars {
			if b.Len() > 0 {
				segments = append(segments, b.String())
				b.Reset()
			}
			cut := maxChars
			for cut > 0 && !isRuneStart(word[cut]) {
				cut--
			}
			if cut == 0 {
				// maxChars is smaller than a single rune; cut anyway to
				// guarantee progress.
				cut = maxChars
			}
			segments = append(segments, word[:cut])
			word = word[cut:]
		}
		if word == "" {
			continue
		}

		if b.Len() == 0 {
			b.WriteString(word)
			continue
		}
		if b.Len()+1+len(word) > maxChars {
			segments = append(segments, b.String())
			b.Reset()
			b.WriteString(word)
			continue
		}
		b.WriteByte(' ')
		b.WriteString(word)
	}
	if b.Len() > 0 {
		segments = append(segments, b.String())
	}

	if len(segments) == 0 {
		return []string{""}
	}
	return segments
}

// isRuneStart reports whether b is the first byte of a UTF-8 sequence.
func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Build normalizes the record text, splits it, and assembles ordered chunks
// carrying the record's identity. The chunk count is deterministic for fixed
// input and parameters, and ContentHash is a deterministic digest of the
// chunk text.
func Build(table, id, title, text string, metadata map[string]string, maxChars int) []core.Chunk {
	segments := Split(Normalize(text), maxChars)

	chunks := make([]core.Chunk, len(segments))
	for i, segment := range segments {
		chunks[i] = core.Chunk{
			SourceTable: table,
			SourceID:    id,
			Index:       i,
			Total:       len(segments),
			Title:       title,
			Text:        segment,
			ContentHash: core.HashContent(segment),
			Metadata:    metadata,
		}
	}
	return chunks
}
