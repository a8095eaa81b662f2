// Package scheduler implements the tick-based challenge rotation: computing
// the current scheduling period for a subject, selecting the challenge to
// serve for that period, and aggregating a user's subscribed subjects into a
// single challenge of the day.
package scheduler

import (
	"regexp"
	"strconv"
	"time"

	contextutils "challengeapp/internal/utils"
)

// Granularity values understood by the tick clock. Any other value (except
// the "<N>jours" pattern) is a configuration error.
const (
	GranularityDay   = "jour"
	GranularityWeek  = "semaine"
	GranularityMonth = "mois"
)

// datePatterns is the ordered list of layouts tried when parsing the
// reference date and challenge authoring dates. First match wins.
var datePatterns = []string{
	"2006-01-02",
	"02/01/2006",
	"02/01/06",
	"2006/01/02",
}

var nDaysPattern = regexp.MustCompile(`^(\d+)jours$`)

// ParseFlexibleDate parses a date string against the fixed pattern list.
func ParseFlexibleDate(s string) (time.Time, error) {
	for _, layout := range datePatterns {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, contextutils.ConfigErrorf("unparseable date %q (expected one of %v)", s, datePatterns)
}

// ValidateGranularity checks that a granularity value is one the tick clock
// understands, without computing a tick.
func ValidateGranularity(granularity string) error {
	switch granularity {
	case GranularityDay, GranularityWeek, GranularityMonth:
		return nil
	}
	if m := nDaysPattern.FindStringSubmatch(granularity); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return nil
		}
	}
	return contextutils.ConfigErrorf("unsupported granularity %q", granularity)
}

// Tick computes the integer scheduling period index for a subject's
// granularity relative to the global reference date. It is a pure function
// of its inputs and non-decreasing as now advances. Negative ticks mean
// "before launch". An unparseable reference date or unsupported granularity
// is a configuration error and is never defaulted.
func Tick(granularity, referenceDate string, now time.Time) (int, error) {
	ref, err := ParseFlexibleDate(referenceDate)
	if err != nil {
		return 0, contextutils.ConfigErrorf("invalid reference date %q", referenceDate)
	}

	switch granularity {
	case GranularityDay:
		return daysBetween(ref, now), nil
	case GranularityWeek:
		return floorDiv(daysBetween(ref, now), 7), nil
	case GranularityMonth:
		return (now.Year()-ref.Year())*12 + int(now.Month()) - int(ref.Month()), nil
	}

	if m := nDaysPattern.FindStringSubmatch(granularity); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return 0, contextutils.ConfigErrorf("invalid day-bucket granularity %q", granularity)
		}
		return floorDiv(daysBetween(ref, now), n), nil
	}

	return 0, contextutils.ConfigErrorf("unsupported granularity %q", granularity)
}

// daysBetween returns whole calendar days from the date part of ref to the
// date part of now, ignoring the time of day of both.
func daysBetween(ref, now time.Time) int {
	refDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(nowDay.Sub(refDay).Hours() / 24)
}

// floorDiv divides rounding toward negative infinity so that pre-launch
// ticks stay strictly negative instead of collapsing onto tick 0.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
