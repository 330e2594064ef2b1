package comment

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxBodyBytes = 4096 // 4KB stored size
	MaxBodyChars = 2000 // max character count
)

// ValidateBody checks that a comment body meets content requirements.
func ValidateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("body is empty")
	}
	if len(body) > MaxBodyBytes {
		return fmt.Errorf("body exceeds %d byte limit", MaxBodyBytes)
	}
	if !utf8.ValidString(body) {
		return fmt.Errorf("body contains invalid UTF-8")
	}
	if utf8.RuneCountInString(body) > MaxBodyChars {
		return fmt.Errorf("body exceeds %d character limit", MaxBodyChars)
	}
	return nil
}
