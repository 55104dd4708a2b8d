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
	"strings"
	"time"
)

// Range is a resolved time window in UTC epoch milliseconds. Both bounds
// are inclusive and either may be nil for an open end.
//
// Invariant: when both bounds are present, *SinceMs <= *UntilMs.
type Range struct {
	SinceMs *int64
	UntilMs *int64
	Label   string
}

// Contains reports whether ms falls inside the range. Open ends match
// everything on their side.
func (r Range) Contains(ms int64) bool {
	if r.SinceMs != nil && ms < *r.SinceMs {
		return false
	}
	if r.UntilMs != nil && ms > *r.UntilMs {
		return false
	}
	return true
}

// Closed reports whether both bounds are present.
func (r Range) Closed() bool { return r.SinceMs != nil && r.UntilMs != nil }

// NewRange builds a closed range from two instants, labeling it from the
// two dates.
func NewRange(since, until time.Time) Range {
	s, u := since.UnixMilli(), until.UnixMilli()
	return Range{
		SinceMs: &s,
		UntilMs: &u,
		Label:   fmt.Sprintf("%s to %s", since.UTC().Format("2006-01-02"), until.UTC().Format("2006-01-02")),
	}
}

var (
	sepWords = `(?:to|until|through|thru|and|[-–—])`

	reISODate  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	reISOPair  = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*(?:to|until|through|thru|and|[-–—])\s*(\d{4}-\d{2}-\d{2})`)
	reISOOn    = regexp.MustCompile(`(?i)\bon\s+(\d{4}-\d{2}-\d{2})\b`)
	reYearSpan = regexp.MustCompile(`\b((?:19|20)\d{2})\s*(?:to|until|through|thru|[-–—])\s*(\d{2,4})\b`)
	reYear     = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)

	monthToken  = `(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`
	reMonthAny  = regexp.MustCompile(`(?i)\b` + monthToken + `[a-z]*\b`)
	reMonthSpan = regexp.MustCompile(`(?i)\b` + monthToken + `[a-z]*\.?\s*` + sepWords + `\s*` + monthToken + `[a-z]*\.?(?:\s+'?(\d{2,4}))?`)
	reMonthOne  = regexp.MustCompile(`(?i)\b(last\s+)?` + monthToken + `[a-z]*\.?(?:\s+'?((?:19|20)\d{2}))?\b`)

	reLastN    = regexp.MustCompile(`(?i)\b(?:last|past|previous)\s+(\d+)\s+(day|week|month|year)s?\b`)
	rePrevUnit = regexp.MustCompile(`(?i)\b(?:last|previous|past)\s+(day|week|month|year|fortnight)\b`)
)

var monthIndex = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseRange resolves a free-text range expression against now.
//
// The pattern families are tried in a fixed precedence order and the
// first match wins:
//
//  1. explicit ISO date pair, or "on YYYY-MM-DD"
//  2. bare year span (a trailing 2-digit year inherits the leading
//     year's century)
//  3. single year
//  4. month-name range (both endpoints share one resolved year; the
//     expression never spans a year boundary)
//  5. single month name with optional year ("last <month>" resolves to
//     the most recent past occurrence)
//  6. relative windows (last N days/weeks/months/years, previous
//     week/month/year, fortnight)
//
// A nil return means no family matched; callers fall back to a
// granularity-implied default window or the full dataset.
func ParseRange(text string, now time.Time) *Range {
	now = now.UTC()
	lower := strings.ToLower(text)

	if r := parseISOFamily(lower); r != nil {
		return r
	}
	// Year spans run against text with ISO dates blanked out so that
	// "2020-01-05" can never read as the span 2020..01.
	blanked := reISODate.ReplaceAllString(lower, " ")
	if m := reYearSpan.FindStringSubmatch(blanked); m != nil {
		return yearSpanRange(m[1], m[2])
	}
	hasMonth := reMonthAny.MatchString(lower)
	if !hasMonth {
		if m := reYear.FindStringSubmatch(blanked); m != nil {
			y, _ := strconv.Atoi(m[1])
			return yearRange(y, y)
		}
	}
	if m := reMonthSpan.FindStringSubmatch(lower); m != nil {
		return monthSpanRange(m[1], m[2], m[3], now)
	}
	if m := reMonthOne.FindStringSubmatch(lower); m != nil {
		return singleMonthRange(m[1] != "", m[2], m[3], now)
	}
	if m := reLastN.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return relativeWindow(n, m[2], now)
	}
	if m := rePrevUnit.FindStringSubmatch(lower); m != nil {
		return previousUnit(m[1], now)
	}
	if strings.Contains(lower, "fortnight") {
		return previousUnit("fortnight", now)
	}
	return nil
}

func parseISOFamily(text string) *Range {
	if m := reISOPair.FindStringSubmatch(text); m != nil {
		since, err1 := time.ParseInLocation("2006-01-02", m[1], time.UTC)
		until, err2 := time.ParseInLocation("2006-01-02", m[2], time.UTC)
		if err1 != nil || err2 != nil {
			return nil
		}
		if until.Before(since) {
			since, until = until, since
		}
		r := NewRange(since, dayEnd(until))
		return &r
	}
	if m := reISOOn.FindStringSubmatch(text); m != nil {
		day, err := time.ParseInLocation("2006-01-02", m[1], time.UTC)
		if err != nil {
			return nil
		}
		r := NewRange(day, dayEnd(day))
		r.Label = day.Format("2006-01-02")
		return &r
	}
	return nil
}

func yearSpanRange(fromStr, toStr string) *Range {
	from, _ := strconv.Atoi(fromStr)
	to, _ := strconv.Atoi(toStr)
	if len(toStr) == 2 {
		to = (from/100)*100 + to
	}
	if to < from {
		from, to = to, from
	}
	return yearRange(from, to)
}

func yearRange(from, to int) *Range {
	since := time.Date(from, time.January, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(to+1, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond)
	r := NewRange(since, until)
	if from == to {
		r.Label = strconv.Itoa(from)
	} else {
		r.Label = fmt.Sprintf("%d to %d", from, to)
	}
	return &r
}

func monthSpanRange(m1, m2, yearStr string, now time.Time) *Range {
	a, b := monthIndex[strings.ToLower(m1)], monthIndex[strings.ToLower(m2)]
	year := now.Year()
	if yearStr != "" {
		y, _ := strconv.Atoi(yearStr)
		if y < 100 {
			y += (now.Year() / 100) * 100
		}
		year = y
	}
	// Both endpoints share one resolved year. A reversed pair like
	// "Dec to Feb" is read in calendar order within that year.
	if b < a {
		a, b = b, a
	}
	since := time.Date(year, a, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(year, b+1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond)
	r := NewRange(since, until)
	r.Label = fmt.Sprintf("%s to %s %d", a.String()[:3], b.String()[:3], year)
	return &r
}

func singleMonthRange(hasLast bool, monthStr, yearStr string, now time.Time) *Range {
	month := monthIndex[strings.ToLower(monthStr)]
	year := now.Year()
	switch {
	case yearStr != "":
		year, _ = strconv.Atoi(yearStr)
	case hasLast && month >= now.Month():
		year--
	case !hasLast && month > now.Month():
		// An unqualified month never points at the future.
		year--
	}
	since := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond)
	r := NewRange(since, until)
	r.Label = fmt.Sprintf("%s %d", month.String()[:3], year)
	return &r
}

func relativeWindow(n int, unit string, now time.Time) *Range {
	var since time.Time
	switch strings.ToLower(unit) {
	case "day":
		since = now.AddDate(0, 0, -n)
	case "week":
		since = now.AddDate(0, 0, -7*n)
	case "month":
		since = now.AddDate(0, -n, 0)
	case "year":
		since = now.AddDate(-n, 0, 0)
	default:
		return nil
	}
	r := NewRange(since, now)
	r.Label = fmt.Sprintf("last %d %ss", n, strings.ToLower(unit))
	return &r
}

func previousUnit(unit string, now time.Time) *Range {
	var since, until time.Time
	switch strings.ToLower(unit) {
	case "day":
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		since = start.AddDate(0, 0, -1)
		until = start.Add(-time.Millisecond)
	case "week":
		start := Week.Align(now)
		since = start.AddDate(0, 0, -7)
		until = start.Add(-time.Millisecond)
	case "month":
		start := Month.Align(now)
		since = start.AddDate(0, -1, 0)
		until = start.Add(-time.Millisecond)
	case "year":
		start := Year.Align(now)
		since = start.AddDate(-1, 0, 0)
		until = start.Add(-time.Millisecond)
	case "fortnight":
		r := NewRange(now.AddDate(0, 0, -14), now)
		r.Label = "last 2 weeks"
		return &r
	default:
		return nil
	}
	r := NewRange(since, until)
	r.Label = "previous " + strings.ToLower(unit)
	return &r
}

// DefaultRange is the window implied by a granularity when the text
// carried no explicit range: 3 years of years, 12 months of months or
// quarters, 12 weeks of weeks, 30 days of days.
func DefaultRange(g Granularity, now time.Time) Range {
	now = now.UTC()
	var since time.Time
	switch g {
	case Year:
		since = now.AddDate(-3, 0, 0)
	case Quarter, Month:
		since = now.AddDate(0, -12, 0)
	case Week:
		since = now.AddDate(0, 0, -7*12)
	default:
		since = now.AddDate(0, 0, -30)
	}
	r := NewRange(since, now)
	r.Label = "last " + g.Label()
	return r
}

func dayEnd(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Millisecond)
}
