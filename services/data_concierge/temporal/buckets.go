// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package temporal

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Granularity selects the bucket width used for aggregation.
type Granularity string

const (
	Year    Granularity = "year"
	Quarter Granularity = "quarter"
	Month   Granularity = "month"
	Week    Granularity = "week"
	Day     Granularity = "day"
)

// Label is the presentation column label for the granularity.
func (g Granularity) Label() string {
	switch g {
	case Year:
		return "Year"
	case Quarter:
		return "Quarter"
	case Month:
		return "Month"
	case Week:
		return "Week"
	default:
		return "Day"
	}
}

// Align floors t to the start of its bucket in UTC.
//
// Alignment and stepping satisfy Align(Step(Align(t))) == Step(Align(t)):
// stepping an aligned instant lands on an aligned instant.
func (g Granularity) Align(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case Year:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case Quarter:
		qm := time.Month(((int(t.Month())-1)/3)*3 + 1)
		return time.Date(t.Year(), qm, 1, 0, 0, 0, 0, time.UTC)
	case Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Week:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7)) // back to Monday
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Step advances an aligned bucket start to the next bucket start.
func (g Granularity) Step(t time.Time) time.Time {
	switch g {
	case Year:
		return t.AddDate(1, 0, 0)
	case Quarter:
		return t.AddDate(0, 3, 0)
	case Month:
		return t.AddDate(0, 1, 0)
	case Week:
		return t.AddDate(0, 0, 7)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// Describe renders the bucket label for an aligned bucket start. Weeks
// use ISO week numbering (YYYY-Www, anchored on the week containing
// January 4th).
func (g Granularity) Describe(t time.Time) string {
	switch g {
	case Year:
		return strconv.Itoa(t.Year())
	case Quarter:
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	case Month:
		return t.Format("Jan 2006")
	case Week:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	default:
		return t.Format("2006-01-02")
	}
}

// Series walks the aligned bucket starts covering r, start through end
// inclusive. Consumers zero-fill empty buckets, so the series never has
// gaps. The range must be closed.
func Series(r Range, g Granularity) []time.Time {
	if !r.Closed() {
		return nil
	}
	start := g.Align(time.UnixMilli(*r.SinceMs).UTC())
	end := g.Align(time.UnixMilli(*r.UntilMs).UTC())
	var out []time.Time
	for t := start; !t.After(end); t = g.Step(t) {
		out = append(out, t)
	}
	return out
}

var granularityPatterns = []struct {
	re *regexp.Regexp
	g  Granularity
}{
	{regexp.MustCompile(`(?i)\b(per|by|each|every)\s+year\b|\byearly\b|\bannual(ly)?\b`), Year},
	{regexp.MustCompile(`(?i)\b(per|by|each|every)\s+quarter\b|\bquarterly\b`), Quarter},
	{regexp.MustCompile(`(?i)\b(per|by|each|every)\s+month\b|\bmonthly\b`), Month},
	{regexp.MustCompile(`(?i)\b(per|by|each|every)\s+week\b|\bweekly\b`), Week},
	{regexp.MustCompile(`(?i)\b(per|by|each|every)\s+day\b|\bdaily\b`), Day},
}

// DetectGranularity scans text for an explicit bucket-width request
// ("per month", "weekly", ...). The second return is false when none is
// present.
func DetectGranularity(text string) (Granularity, bool) {
	for _, p := range granularityPatterns {
		if p.re.MatchString(text) {
			return p.g, true
		}
	}
	return "", false
}
