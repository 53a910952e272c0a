package utils

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const runIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateRunID returns an identifier for one forwarding pass, sortable by start time.
func GenerateRunID(now time.Time) string {
	id, err := gonanoid.Generate(runIDAlphabet, 8)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%s-%s", now.UTC().Format("20060102T150405"), id)
}
