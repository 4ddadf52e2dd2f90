package etc

import (
	"time"

	"github.com/nrednav/cuid2"
)

func NewFreshID() string {
	return cuid2.Generate()
}

// ParseTimestamp reads a browser-supplied timestamp, accepting RFC 3339
// with or without sub-second precision. The zero time is returned when
// the value is empty or unparseable; callers substitute their own clock.
func ParseTimestamp(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
