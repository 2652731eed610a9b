package domain

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSourceFromContext_TruncatesLongExcerpt(t *testing.T) {
	text := strings.Repeat("a", 250)
	src := SourceFromContext(RetrievedContext{Text: text, Source: "doc.txt", Score: 0.5})

	want := strings.Repeat("a", 200) + "..."
	if src.Excerpt != want {
		t.Errorf("excerpt = %d chars %q..., want first 200 chars plus ellipsis", len(src.Excerpt), src.Excerpt[:10])
	}
}

func TestSourceFromContext_TruncatesByCharactersNotBytes(t *testing.T) {
	// Three bytes per rune: a byte-based cut would land mid-rune.
	text := strings.Repeat("文", 250)
	src := SourceFromContext(RetrievedContext{Text: text, Source: "doc.txt", Score: 0.5})

	if !utf8.ValidString(src.Excerpt) {
		t.Fatal("excerpt is not valid UTF-8")
	}
	want := strings.Repeat("文", 200) + "..."
	if src.Excerpt != want {
		t.Errorf("excerpt has %d characters before the marker, want 200",
			utf8.RuneCountInString(strings.TrimSuffix(src.Excerpt, "...")))
	}
}

func TestSourceFromContext_ShortTextKeptVerbatim(t *testing.T) {
	text := strings.Repeat("b", 150)
	src := SourceFromContext(RetrievedContext{Text: text, Source: "doc.txt", Score: 0.5})

	if src.Excerpt != text {
		t.Errorf("excerpt = %q, want full text with no marker", src.Excerpt)
	}
}

func TestSourceFromContext_RoundsScore(t *testing.T) {
	tests := []struct {
		score float64
		want  float64
	}{
		{0.123456, 0.123},
		{0.9995, 1.0},
		{0.8764999, 0.876},
		{0, 0},
	}
	for _, tt := range tests {
		src := SourceFromContext(RetrievedContext{Text: "t", Score: tt.score})
		if src.RelevanceScore != tt.want {
			t.Errorf("score %f rounded to %f, want %f", tt.score, src.RelevanceScore, tt.want)
		}
	}
}
