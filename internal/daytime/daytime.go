// Package daytime converts between wall-clock times of day and day-seconds.
//
// A day-second is an integer in [1, 86400]: hours*3600 + minutes*60 + seconds + 1.
// The +1 offset keeps zero out of the range so an unset value is never a valid
// time. Day-seconds are relative to a virtual day boundary placed at 23:59:59 of
// the previous day, which makes ToTime and ToDaySeconds exact inverses.
package daytime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// Min is the smallest valid day-second (00:00:00).
	Min = 1
	// Max is the largest valid day-second (23:59:59).
	Max = 24 * 60 * 60

	secondsPerHour   = 3600
	secondsPerMinute = 60
	boundaryHour     = 23
	boundaryMinute   = 59
	boundarySecond   = 59
	timeTokens       = 3
)

// ErrInvalidTime is returned when a time string cannot be parsed.
var ErrInvalidTime = errors.New("invalid time of day")

// ToTime maps daySeconds onto the day of now: the result is now's day at
// 23:59:59, minus one day, plus daySeconds.
func ToTime(daySeconds int, now time.Time) time.Time {
	return DayBoundary(now).AddDate(0, 0, -1).Add(time.Duration(daySeconds) * time.Second)
}

// ToDaySeconds returns the day-second encoding of t's time of day.
func ToDaySeconds(t time.Time) int {
	return t.Hour()*secondsPerHour + t.Minute()*secondsPerMinute + t.Second() + 1
}

// DayBoundary returns t's day with the time forced to 23:59:59.000.
func DayBoundary(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, boundaryHour, boundaryMinute, boundarySecond, 0, t.Location())
}

// TimeString renders t's time of day as "H:M:S" without zero padding.
func TimeString(t time.Time) string {
	return fmt.Sprintf("%d:%d:%d", t.Hour(), t.Minute(), t.Second())
}

// ParseDaySeconds parses "HH:MM:SS" into a day-second.
func ParseDaySeconds(value string) (int, error) {
	tokens := strings.Split(value, ":")
	if len(tokens) != timeTokens {
		return 0, fmt.Errorf("%w: %q should follow the format HH:MM:SS", ErrInvalidTime, value)
	}

	limits := [timeTokens]int{23, 59, 59}
	var parts [timeTokens]int
	for i, token := range tokens {
		n, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("%w: %q is not a valid time, expected [0,23]:[0,59]:[0,59]", ErrInvalidTime, value)
		}
		parts[i] = n
	}

	return parts[0]*secondsPerHour + parts[1]*secondsPerMinute + parts[2] + 1, nil
}

// Clock splits a day-second back into hour, minute and second.
func Clock(daySeconds int) (hour, minute, second int) {
	s := daySeconds - 1
	return s / secondsPerHour, (s % secondsPerHour) / secondsPerMinute, s % secondsPerMinute
}
