package diff

import (
	"hash/fnv"
	"math/bits"
	"strings"

	"golang.org/x/net/html"
)

// fingerprint computes a 64-bit SimHash over the whitespace-separated
// tokens of text, using FNV-64a per token.
func fingerprint(text string) uint64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	var vector [64]int
	for _, word := range words {
		h := fnv.New64a()
		h.Write([]byte(word))
		sum := h.Sum64()
		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// distance is the Hamming distance between two fingerprints, 0..64.
func distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// ContentDistance compares the visible text of two documents. 0 means the
// text is the same word for word; small values mean minor edits.
func ContentDistance(before, after string) int {
	return distance(fingerprint(visibleText(before)), fingerprint(visibleText(after)))
}

// StructuralDistance compares the tag sequences of two documents, ignoring
// text and attributes.
func StructuralDistance(before, after string) int {
	return distance(structureFingerprint(before), structureFingerprint(after))
}

// structureFingerprint hashes 3-tag shingles of the open-tag sequence.
func structureFingerprint(markup string) uint64 {
	tags := openTags(markup)
	if len(tags) == 0 {
		return 0
	}
	shingles := makeShingles(tags, 3)
	if len(shingles) == 0 {
		return fingerprint(strings.Join(tags, " "))
	}
	return fingerprint(strings.Join(shingles, " "))
}

func openTags(markup string) []string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var tags []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return tags
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tags = append(tags, string(name))
		}
	}
}

func makeShingles(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	shingles := make([]string, 0, len(tokens)-n+1)
	for i := 0; i <= len(tokens)-n; i++ {
		shingles = append(shingles, strings.Join(tokens[i:i+n], "_"))
	}
	return shingles
}

// visibleText returns the text nodes of markup outside script, style,
// noscript and template elements.
func visibleText(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var sb strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.StartTagToken:
			if name, _ := z.TagName(); hidden(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); hidden(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
				sb.WriteByte(' ')
			}
		}
	}
}

func hidden(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}
