package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var timecodeRangeRe = regexp.MustCompile(`((?:\d{2}:?)+,\d{3})\s+-->\s+((?:\d{2}:?)+,\d{3})`)

// ParseTimecode parses "HH:MM:SS,mmm" into a duration.
// Leading fields may be omitted ("MM:SS,mmm").
func ParseTimecode(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	whole, frac, ok := strings.Cut(s, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timecode %q: missing milliseconds", s)
	}

	ms, err := strconv.Atoi(frac)
	if err != nil || len(frac) != 3 {
		return 0, fmt.Errorf("invalid timecode %q: bad milliseconds", s)
	}

	parts := strings.Split(strings.TrimSuffix(whole, ":"), ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timecode %q", s)
	}

	units := []time.Duration{time.Second, time.Minute, time.Hour}
	total := time.Duration(ms) * time.Millisecond
	for i := range parts {
		// parts are read right to left: seconds, minutes, hours
		part := parts[len(parts)-1-i]
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timecode %q: bad field %q", s, part)
		}
		total += time.Duration(n) * units[i]
	}

	return total, nil
}

// FormatTimecode formats a duration as "HH:MM:SS,mmm".
func FormatTimecode(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := d.Milliseconds()
	hours := total / 3600000
	minutes := total % 3600000 / 60000
	seconds := total % 60000 / 1000
	milliseconds := total % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, milliseconds)
}

// IsTimecodeLine reports whether line carries a "start --> end" range.
func IsTimecodeLine(line string) bool {
	return timecodeRangeRe.MatchString(line)
}

// ParseTimecodeRange extracts both ends of a "start --> end" line.
func ParseTimecodeRange(line string) (time.Duration, time.Duration, error) {
	matches := timecodeRangeRe.FindStringSubmatch(line)
	if len(matches) != 3 {
		return 0, 0, fmt.Errorf("invalid time format: %s", line)
	}

	start, err := ParseTimecode(matches[1])
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimecode(matches[2])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
