package services

import (
	"regexp"
	"strings"
)

const (
	EmailPlaceholder = "<email>"
	PhonePlaceholder = "<phone>"
)

var (
	emailRe        = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	phoneRe        = regexp.MustCompile(`(?:(?:\+\d{1,3}[\s-]?)?(?:\(\d{1,4}\)[\s-]?)?\d[\d\s-]{7,}\d)`)
	horizontalWSRe = regexp.MustCompile(`[ \t]+`)
	blankLinesRe   = regexp.MustCompile(`\n{3,}`)

	bulletReplacer = strings.NewReplacer(
		"•", "- ",
		"◦", "- ",
		"▪", "- ",
		"●", "- ",
		"‣", "- ",
	)
)

// NormalizeText cleans loader output. PII masking runs after whitespace collapse.
func NormalizeText(text string, maskPII bool) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = bulletReplacer.Replace(text)
	text = collapseSpaces(text)
	if maskPII {
		text = MaskPII(text)
	}
	return text
}

func collapseSpaces(text string) string {
	text = horizontalWSRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// MaskPII replaces email-like tokens and phone-like digit runs with fixed placeholders.
func MaskPII(text string) string {
	text = emailRe.ReplaceAllString(text, EmailPlaceholder)
	text = phoneRe.ReplaceAllString(text, PhonePlaceholder)
	return text
}
