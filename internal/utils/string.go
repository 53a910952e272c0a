package utils

import (
	"mime"
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

var headerDecoder = &mime.WordDecoder{}

// CleanHeader collapses every whitespace run, including folded line breaks, into one space.
func CleanHeader(value string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(value, " "))
}

// DecodeHeader decodes RFC 2047 encoded-words. Undecodable input is returned unchanged.
func DecodeHeader(value string) string {
	decoded, err := headerDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// CleanFilename decodes and cleans an attachment filename.
func CleanFilename(name string) string {
	return CleanHeader(DecodeHeader(name))
}

func ForwardSubject(subject string) string {
	return "Fwd: " + CleanHeader(subject)
}
