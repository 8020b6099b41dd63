package service

import (
	"strings"
	"unicode"
)

// ChunkConfig controls how free-form text is segmented before embedding.
type ChunkConfig struct {
	// ShortTextChars is the length below which input is kept as one chunk.
	ShortTextChars int
	// MaxChunkChars bounds the length of a packed chunk.
	MaxChunkChars int
	// MinFragmentChars is the minimum length a comma-split fragment must
	// exceed to be kept.
	MinFragmentChars int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ShortTextChars:   200,
		MaxChunkChars:    300,
		MinFragmentChars: 10,
	}
}

// chunkText splits text into segments small enough to embed meaningfully and
// large enough to retain context. It is pure and deterministic: identical
// input always yields identical chunks in input order.
func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChunkChars <= 0 {
		cfg = DefaultChunkConfig()
	}

	// Short inputs are assumed already coherent.
	if len([]rune(clean)) < cfg.ShortTextChars {
		return []string{clean}
	}

	sentences := splitSentences(clean)
	if len(sentences) <= 1 {
		// A single long run-on sentence: recover structure from commas.
		if fragments := splitCommaFragments(clean, cfg.MinFragmentChars); len(fragments) > 0 {
			return fragments
		}
		return []string{clean}
	}

	return packSentences(sentences, cfg.MaxChunkChars)
}

// splitSentences splits on terminal punctuation followed by whitespace and an
// uppercase letter. Requiring the uppercase start avoids splitting on
// abbreviation periods followed by lowercase continuations.
func splitSentences(text string) []string {
	runes := []rune(text)
	sentences := make([]string, 0, 8)
	start := 0
	i := 0
	for i < len(runes) {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			i++
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) || !isSentenceStart(runes[j]) {
			i++
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = j
		i = j
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// isSentenceStart reports whether r can open a sentence: an ASCII uppercase
// letter or an accented Spanish uppercase letter.
func isSentenceStart(r rune) bool {
	if r >= 'A' && r <= 'Z' {
		return true
	}
	switch r {
	case 'Á', 'É', 'Í', 'Ó', 'Ú', 'Ñ':
		return true
	}
	return false
}

// splitCommaFragments splits on comma-plus-space boundaries, keeping only
// fragments longer than minChars. Splitting on ", " rather than bare commas
// leaves decimal numbers like "12,50" intact.
func splitCommaFragments(text string, minChars int) []string {
	parts := strings.Split(text, ", ")
	fragments := make([]string, 0, len(parts))
	for _, p := range parts {
		f := strings.TrimSpace(p)
		if len([]rune(f)) > minChars {
			fragments = append(fragments, f)
		}
	}
	return fragments
}

// packSentences greedily packs sentences into chunks under maxChars, joining
// with single spaces. A sentence longer than maxChars becomes its own chunk.
func packSentences(sentences []string, maxChars int) []string {
	chunks := make([]string, 0, len(sentences))
	var acc string
	for _, s := range sentences {
		switch {
		case acc == "":
			acc = s
		case len([]rune(acc))+1+len([]rune(s)) < maxChars:
			acc = acc + " " + s
		default:
			chunks = append(chunks, acc)
			acc = s
		}
	}
	if acc != "" {
		chunks = append(chunks, acc)
	}
	return chunks
}
