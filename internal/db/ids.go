package db

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const maxSlugLen = 60

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	slugStripRe  = regexp.MustCompile(`[^a-z0-9_\-]`)
)

// Slugify turns a patient name into a file name prefix: lower case, runs of
// whitespace become '_', anything outside [a-z0-9_-] is dropped, and the
// result is capped at 60 bytes.
func Slugify(name string) string {
	s := strings.TrimSpace(strings.ToLower(name))
	s = whitespaceRe.ReplaceAllString(s, "_")
	s = slugStripRe.ReplaceAllString(s, "")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	return s
}

// NewRecordingID returns r<unix ts>_<6 hex chars>.
func NewRecordingID(ts int64) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("r%d_%s", ts, hex[:6])
}
