package engine

import (
	"math/rand/v2"
	"strings"
)

func splitWords(s string) []string {
	return strings.Fields(s)
}

// Paragraphs is an immutable pool of race texts.
type Paragraphs struct {
	texts []string
}

// NewParagraphs keeps the non-blank entries of texts. An empty result falls
// back to DefaultParagraphs so Pick never hands out an empty paragraph.
func NewParagraphs(texts []string) *Paragraphs {
	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.Join(splitWords(t), " ")
		if t != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, DefaultParagraphs...)
	}
	return &Paragraphs{texts: kept}
}

func (p *Paragraphs) Pick() string {
	return p.texts[rand.IntN(len(p.texts))]
}

func (p *Paragraphs) Len() int { return len(p.texts) }
