package utils

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanHeader(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Quarterly report", "Quarterly report"},
		{"folded", "Quarterly\r\n report", "Quarterly report"},
		{"tabs and spaces", "Quarterly\t\t report   for\nQ3", "Quarterly report for Q3"},
		{"surrounding", "  padded  ", "padded"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanHeader(tt.input))
		})
	}
}

func TestCleanFilename_DecodesEncodedWords(t *testing.T) {
	assert.Equal(t, "Rechnung März.pdf", CleanFilename("=?UTF-8?Q?Rechnung_M=C3=A4rz.pdf?="))
	assert.Equal(t, "report.pdf", CleanFilename("=?utf-8?B?cmVwb3J0LnBkZg==?="))
	assert.Equal(t, "plain name.txt", CleanFilename("plain\r\n  name.txt"))
}

func TestDecodeHeader_InvalidIsUnchanged(t *testing.T) {
	assert.Equal(t, "=?x-unknown?Q?abc?=", DecodeHeader("=?x-unknown?Q?abc?="))
}

func TestForwardSubject(t *testing.T) {
	assert.Equal(t, "Fwd: ", ForwardSubject(""))
	assert.Equal(t, "Fwd: Hello world", ForwardSubject("Hello\r\n\tworld"))
	assert.Equal(t, "Fwd: Fwd: nested", ForwardSubject("Fwd: nested"))
}

func TestGenerateRunID(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	first := GenerateRunID(now)
	second := GenerateRunID(now)

	assert.True(t, strings.HasPrefix(first, "20261019T083000-"))
	assert.Len(t, first, len("20261019T083000-")+8)
	assert.NotEqual(t, first, second)
}

func TestRunContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", GetRunIDFromContext(ctx))

	ctx = WithRunContext(ctx, &RunContext{RunID: "run-1", MailboxUser: "me@yahoo.com"})
	assert.Equal(t, "run-1", GetRunIDFromContext(ctx))
	assert.Equal(t, "me@yahoo.com", GetMailboxUserFromContext(ctx))
}
