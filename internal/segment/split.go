package segment

import (
	"log"
	"regexp"
	"strconv"
	"strings"

	"article-video-pipeline/internal/types"
)

// markerRe matches an image marker either in full markdown image form,
// ![]($n$), or bare, $n$.
var markerRe = regexp.MustCompile(`!\[[^\]]*\]\(\s*\$(\d+)\$\s*\)|\$(\d+)\$`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Split scans cleaned markdown left to right and produces the ordered
// segment list. Contiguous non-marker text accumulates into text-only
// segments; each marker opens a segment that adopts the sentence
// immediately following it, so every segment has narratable text.
// Segments left empty are dropped. A marker index outside
// [1, imageCount] is a data-quality fault: the segment survives with
// its image reference cleared.
func Split(md string, imageCount, maxWords int) []types.ScriptSegment {
	type span struct {
		text     string
		imageRef int
	}
	var spans []span

	matches := markerRe.FindAllStringSubmatchIndex(md, -1)
	cursor := 0
	for i, m := range matches {
		pre := md[cursor:m[0]]
		if t := normalize(pre); t != "" {
			spans = append(spans, span{text: t})
		}

		ref := markerIndex(md, m)

		// The marker adopts its trailing sentence, stopping short of
		// the next marker.
		tailEnd := len(md)
		if i+1 < len(matches) {
			tailEnd = matches[i+1][0]
		}
		sentence, consumed := firstSentence(md[m[1]:tailEnd])
		spans = append(spans, span{text: normalize(sentence), imageRef: ref})
		cursor = m[1] + consumed
	}
	if t := normalize(md[cursor:]); t != "" {
		spans = append(spans, span{text: t})
	}

	var segments []types.ScriptSegment
	for _, sp := range spans {
		if sp.text == "" {
			continue
		}
		ref := sp.imageRef
		if ref != 0 && (ref < 1 || ref > imageCount) {
			log.Printf("[segment] data-quality fault: marker $%d$ out of range (have %d images) — clearing reference", ref, imageCount)
			ref = 0
		}
		if ref != 0 {
			segments = append(segments, types.ScriptSegment{Text: sp.text, ImageRef: ref})
			continue
		}
		// Text-only spans may exceed the word budget; split them at
		// sentence boundaries. Marker spans are single sentences by
		// construction.
		for _, part := range splitLongText(sp.text, maxWords) {
			segments = append(segments, types.ScriptSegment{Text: part})
		}
	}

	for i := range segments {
		segments[i].SequenceIndex = i
	}
	return segments
}

func markerIndex(md string, m []int) int {
	for _, g := range []int{2, 4} {
		if m[g] >= 0 {
			n, err := strconv.Atoi(md[m[g]:m[g+1]])
			if err == nil {
				return n
			}
		}
	}
	return 0
}

// firstSentence returns the leading sentence of s and how many bytes of
// s it consumed. A sentence ends at ., ! or ? followed by whitespace or
// end of input. Without a boundary the whole span is the sentence.
func firstSentence(s string) (string, int) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '!', '?':
			if i+1 >= len(s) || s[i+1] == ' ' || s[i+1] == '\n' || s[i+1] == '\t' || s[i+1] == '\r' {
				return s[:i+1], i + 1
			}
		}
	}
	return s, len(s)
}

// splitLongText breaks text into chunks of at most maxWords, cutting
// only at sentence boundaries. A single sentence longer than maxWords
// stays whole.
func splitLongText(text string, maxWords int) []string {
	if maxWords <= 0 || wordCount(text) <= maxWords {
		return []string{text}
	}

	var sentences []string
	rest := text
	for rest != "" {
		sentence, consumed := firstSentence(rest)
		sentences = append(sentences, strings.TrimSpace(sentence))
		rest = strings.TrimSpace(rest[consumed:])
	}

	var chunks []string
	var current string
	currentWords := 0
	for _, sentence := range sentences {
		if sentence == "" {
			continue
		}
		n := wordCount(sentence)
		switch {
		case current == "":
			current, currentWords = sentence, n
		case currentWords+n > maxWords:
			chunks = append(chunks, current)
			current, currentWords = sentence, n
		default:
			current += " " + sentence
			currentWords += n
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// normalize collapses whitespace and strips markdown heading and list
// markers so the text reads naturally as narration.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		t := strings.TrimSpace(line)
		t = strings.TrimLeft(t, "#")
		t = strings.TrimPrefix(t, "- ")
		t = strings.TrimPrefix(t, "* ")
		t = strings.TrimPrefix(t, "> ")
		lines[i] = t
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.Join(lines, " "), " "))
}

func wordCount(s string) int { return len(strings.Fields(s)) }
