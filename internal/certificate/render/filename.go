package render

import (
	"fmt"
	"regexp"
	"strings"
)

// maxSegmentLen bounds each sanitized filename segment so storage keys stay
// within backend limits regardless of event title or name length.
const maxSegmentLen = 50

var (
	unsafeChars  = regexp.MustCompile(`[^\w\s-]`)
	spacesDashes = regexp.MustCompile(`[-\s]+`)
)

// Sanitize strips characters outside the safe alphanumeric/underscore/hyphen
// set, collapses whitespace and hyphen runs to single underscores, and
// truncates to 50 characters.
func Sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(s, "")
	s = spacesDashes.ReplaceAllString(strings.TrimSpace(s), "_")
	if len(s) > maxSegmentLen {
		s = s[:maxSegmentLen]
	}
	return s
}

// Filename builds the document filename:
// {orgTag}_{SanitizedEventTitle}_{SanitizedParticipantName}.png
func Filename(orgTag, eventTitle, fullName string) string {
	return fmt.Sprintf("%s_%s_%s.png", orgTag, Sanitize(eventTitle), Sanitize(fullName))
}

// ZipFilename names the all-certificates archive for an event.
func ZipFilename(eventTitle string) string {
	return fmt.Sprintf("Certificates_%s.zip", Sanitize(eventTitle))
}
