package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var namePolicy = bluemonday.StrictPolicy()

// SanitizeName strips any markup from an uploader supplied display name.
// Original filenames are untrusted and only ever shown back to clients.
func SanitizeName(input string) string {
	return strings.TrimSpace(namePolicy.Sanitize(input))
}
