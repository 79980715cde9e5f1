package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestChunkByWordsWhitespaceOnly(t *testing.T) {
	assert.Empty(t, ChunkByWords("", 320, 60))
	assert.Empty(t, ChunkByWords(" \n\t  ", 320, 60))
}

func TestChunkByWordsSingleWindow(t *testing.T) {
	chunks := ChunkByWords("alpha  beta\n gamma\tdelta", 10, 2)
	require.Len(t, chunks, 1)
	assert.Equal(t, "alpha beta gamma delta", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)

	exact := ChunkByWords(words(5), 5, 2)
	require.Len(t, exact, 1)
	assert.Equal(t, words(5), exact[0].Text)
}

func TestChunkByWordsOverlap(t *testing.T) {
	const w, o = 20, 5
	chunks := ChunkByWords(words(100), w, o)
	require.Len(t, chunks, 7)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.LessOrEqual(t, len(strings.Fields(c.Text)), w)
	}
	for i := 0; i+1 < len(chunks); i++ {
		cur := strings.Fields(chunks[i].Text)
		next := strings.Fields(chunks[i+1].Text)
		assert.Equal(t, cur[len(cur)-o:], next[:o], "pair %d", i)
	}

	last := strings.Fields(chunks[len(chunks)-1].Text)
	assert.Equal(t, "w99", last[len(last)-1])
}

func TestChunkByWordsNoOverlap(t *testing.T) {
	chunks := ChunkByWords(words(7), 3, 0)
	require.Len(t, chunks, 3)
	assert.Equal(t, "w0 w1 w2", chunks[0].Text)
	assert.Equal(t, "w3 w4 w5", chunks[1].Text)
	assert.Equal(t, "w6", chunks[2].Text)
}

func TestChunkByWordsStepIsAtLeastOne(t *testing.T) {
	chunks := ChunkByWords(words(4), 3, 5)
	require.Len(t, chunks, 2)
	assert.Equal(t, "w0 w1 w2", chunks[0].Text)
	assert.Equal(t, "w1 w2 w3", chunks[1].Text)
}

func TestSplitByHeadings(t *testing.T) {
	sections := SplitByHeadings("Intro text\nResponsibilities\nDo X\nDo Y\nBenefits\nFree snacks")
	assert.Equal(t, []Section{
		{Key: "overview", Text: "Intro text"},
		{Key: "responsibilities", Text: "Do X\nDo Y"},
		{Key: "benefits", Text: "Free snacks"},
	}, sections)
}

func TestSplitByHeadingsNormalizesHeadingLines(t *testing.T) {
	text := "About the job:\nBuild APIs\nBenefits & Perks -\nRemote\nHere are some real examples of our work\nCase A\nAbout you\n"
	sections := SplitByHeadings(text)
	assert.Equal(t, []Section{
		{Key: "about_the_job", Text: "Build APIs"},
		{Key: "benefits_perks", Text: "Remote"},
		{Key: "here_are_some_real_examples_of_our_work", Text: "Case A"},
	}, sections)
}

func TestSplitByHeadingsWithoutHeadings(t *testing.T) {
	sections := SplitByHeadings("  just some text\nwith lines  ")
	assert.Equal(t, []Section{{Key: "overview", Text: "just some text\nwith lines"}}, sections)
}

func TestTextChunkerUsesConfiguredWindow(t *testing.T) {
	tc := NewTextChunker(4, 1)
	chunks := tc.ChunkText(words(10))
	require.Len(t, chunks, 3)
	assert.Equal(t, "w0 w1 w2 w3", chunks[0].Text)
	assert.Equal(t, "w3 w4 w5 w6", chunks[1].Text)
	assert.Equal(t, "w6 w7 w8 w9", chunks[2].Text)
}
