package message

import (
	"strings"
	"time"
)

// dateLayout is RFC 5322 §3.3's date-time: day-of-week, 2-digit day,
// 3-letter month, 4-digit year, time, and a numeric UTC offset. Modeled
// on imap/imapserver/imapserver.go's use of an explicit Go reference-time
// layout rather than a named time.RFC* constant, since none of those
// match this exact shape (RFC1123Z has no leading day-of-week comma
// variant mailio expects, and the offset here is never "Z").
const dateLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

// FormatDate renders t per RFC 5322 §3.3, keeping t's own UTC offset
// instead of normalizing to a particular zone.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate parses an RFC 5322 date-time, tolerating a trailing
// "(comment)" such as a zone abbreviation in parentheses.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return time.Parse(dateLayout, s)
}
