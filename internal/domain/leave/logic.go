package leave

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// CalendarDate drops the clock and zone of t, keeping the date as seen in t's own location.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the inclusive calendar-day count from start to end.
// It is <= 0 when end falls before start.
func DaysBetween(start, end time.Time) int {
	return int(dayNumber(end)-dayNumber(start)) + 1
}

// dayNumber counts days since 1970-01-01. Calendar dates sit on midnight UTC, so the division is exact.
func dayNumber(t time.Time) int64 {
	return CalendarDate(t).Unix() / secondsPerDay
}

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp and returns the calendar date as written.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return CalendarDate(t), nil
}

// ParseStatus maps either casing onto the canonical status.
func ParseStatus(value string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pending":
		return StatusPending, nil
	case "approved":
		return StatusApproved, nil
	case "rejected":
		return StatusRejected, nil
	}
	return "", fmt.Errorf("unknown status %q", value)
}

func ParseAction(value string) Action {
	return Action(strings.ToLower(strings.TrimSpace(value)))
}

var (
	errInsecureDocument = errors.New("document reference must be an https URL")
	errDocumentHost     = errors.New("document host is not allowed")
)

// ValidateDocumentRef checks that ref is an absolute https URL and, when allowedHosts is
// non-empty, that its host is listed.
func ValidateDocumentRef(ref string, allowedHosts []string) error {
	u, err := url.Parse(ref)
	if err != nil || !strings.EqualFold(u.Scheme, "https") || u.Hostname() == "" || u.User != nil {
		return errInsecureDocument
	}
	if len(allowedHosts) == 0 {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range allowedHosts {
		if host == allowed {
			return nil
		}
	}
	return errDocumentHost
}
