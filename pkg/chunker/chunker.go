// Package chunker splits reply text into bounded segments for speech synthesis.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength keeps each segment under the speech providers' per-request text limits
const DefaultMaxLength = 1900

// Chunk splits text at whitespace into segments of at most maxLength runes, in reading order.
// Whitespace runs collapse to single spaces. A word longer than maxLength is the one case that
// gets cut inside the word, so the bound always holds. maxLength <= 0 disables the bound
func Chunk(text string, maxLength int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}
	if maxLength <= 0 {
		return []string{strings.Join(words, " ")}
	}

	chunks := make([]string, 0, 1)
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)

		if wordLen > maxLength {
			flush()
			pieces := splitWord(word, maxLength)
			chunks = append(chunks, pieces[:len(pieces)-1]...)
			last := pieces[len(pieces)-1]
			current.WriteString(last)
			currentLen = utf8.RuneCountInString(last)
			continue
		}

		if currentLen > 0 && currentLen+1+wordLen > maxLength {
			flush()
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(word)
		currentLen += wordLen
	}
	flush()

	return chunks
}

// splitWord hard-cuts a word into maxLength-rune pieces
func splitWord(word string, maxLength int) []string {
	runes := []rune(word)
	pieces := make([]string, 0, len(runes)/maxLength+1)
	for start := 0; start < len(runes); start += maxLength {
		end := min(start+maxLength, len(runes))
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
