package services

import (
	"regexp"
	"strings"

	"alfredoptarigan/cv-screener/internal/models"
)

type TextChunker interface {
	ChunkText(text string) []models.Chunk
	SplitSections(text string) []Section
}

// Section is a labeled slice of a document produced by the heading splitter.
type Section struct {
	Key  string
	Text string
}

type textChunker struct {
	words   int
	overlap int
}

func NewTextChunker(words, overlap int) TextChunker {
	return &textChunker{words: words, overlap: overlap}
}

// ChunkText implements TextChunker.
func (tc *textChunker) ChunkText(text string) []models.Chunk {
	return ChunkByWords(text, tc.words, tc.overlap)
}

// SplitSections implements TextChunker.
func (tc *textChunker) SplitSections(text string) []Section {
	return SplitByHeadings(text)
}

// ChunkByWords splits text into windows of up to words tokens, each starting
// max(1, words-overlap) tokens after the previous one. The window that reaches
// the last token is the final chunk.
func ChunkByWords(text string, words, overlap int) []models.Chunk {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	if words <= 0 {
		words = len(tokens)
	}

	step := words - overlap
	if step < 1 {
		step = 1
	}

	var chunks []models.Chunk
	for start := 0; start < len(tokens); start += step {
		end := start + words
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, models.Chunk{
			Index: len(chunks),
			Text:  strings.Join(tokens[start:end], " "),
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

var (
	headingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^about the job$`),
		regexp.MustCompile(`^about you$`),
		regexp.MustCompile(`^benefits(?:\s*&\s*perks)?$`),
		regexp.MustCompile(`^responsibilities$`),
		regexp.MustCompile(`^here are some real examples.*$`),
	}
	headingTrailRe = regexp.MustCompile(`[:\-–\s]+$`)
	sectionKeyRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

func isHeading(line string) bool {
	norm := headingTrailRe.ReplaceAllString(strings.ToLower(line), "")
	for _, pat := range headingPatterns {
		if pat.MatchString(norm) {
			return true
		}
	}
	return false
}

func sectionKey(title string) string {
	return strings.Trim(sectionKeyRe.ReplaceAllString(strings.ToLower(title), "_"), "_")
}

// SplitByHeadings partitions a document on recognized headings. Text before the
// first heading is labeled overview; headings with no body are dropped.
func SplitByHeadings(text string) []Section {
	lines := strings.Split(text, "\n")

	var hits []int
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if isHeading(line) {
			hits = append(hits, i)
		}
	}

	whole := []Section{{Key: models.SectionOverview, Text: strings.TrimSpace(text)}}
	if len(hits) == 0 {
		return whole
	}

	var sections []Section
	if pre := strings.TrimSpace(strings.Join(lines[:hits[0]], "\n")); pre != "" {
		sections = append(sections, Section{Key: models.SectionOverview, Text: pre})
	}

	for idx, start := range hits {
		end := len(lines)
		if idx+1 < len(hits) {
			end = hits[idx+1]
		}
		body := strings.TrimSpace(strings.Join(lines[start+1:end], "\n"))
		if body == "" {
			continue
		}
		sections = append(sections, Section{Key: sectionKey(strings.TrimSpace(lines[start])), Text: body})
	}

	if len(sections) == 0 {
		return whole
	}
	return sections
}
