// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package temporal resolves heterogeneous timestamp values and free-text
// range expressions into canonical millisecond instants and ranges, and
// provides the bucket alignment machinery used by the aggregation engine.
//
// The backing dataset mixes epoch milliseconds, epoch seconds, ISO-8601
// strings (with either 'T' or a space), slash dates, and free month-name
// strings. Everything in this package normalizes to UTC milliseconds.
package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// isoLayouts are tried in order for ISO-8601-ish strings. Layouts without
// a zone are parsed as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// monthLayouts are the last-resort layouts for free month-name strings.
var monthLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2 2006",
	"Jan 2006",
	"January 2006",
}

var slashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})(?:\s+(\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)

// ParseTimestamp resolves a raw row value into UTC epoch milliseconds.
//
// Accepted encodings, in order: epoch milliseconds (>= 1e12), epoch
// seconds (>= 1e9, scaled by 1000), ISO-8601 with 'T' or a space,
// dd/mm/yyyy slash dates, and free month-name strings.
//
// Slash dates are day-first. A first component greater than 12 forces
// day-first anyway; a second component greater than 12 is the only case
// read as mm/dd. For ambiguous values like 03/04/2021 the day-first rule
// always wins, so that one consistent rule applies across the dataset.
//
// The second return is false when the value is unrecoverable. Callers
// must exclude such rows, never treat them as the epoch.
func ParseTimestamp(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int64:
		return epochToMs(float64(t))
	case int:
		return epochToMs(float64(t))
	case float64:
		return epochToMs(t)
	case string:
		return parseTimestampString(strings.TrimSpace(t))
	}
	return 0, false
}

func epochToMs(n float64) (int64, bool) {
	switch {
	case n >= 1e12:
		return int64(n), true
	case n >= 1e9:
		return int64(n) * 1000, true
	}
	return 0, false
}

func parseTimestampString(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return epochToMs(n)
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UnixMilli(), true
		}
	}
	if ms, ok := parseSlashDate(s); ok {
		return ms, true
	}
	for _, layout := range monthLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

// parseSlashDate reads dd/mm/yyyy, falling back to mm/dd only when the
// second component cannot be a month.
func parseSlashDate(s string) (int64, bool) {
	m := slashDate.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	day, month := first, second
	if second > 12 {
		day, month = second, first
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, false
	}
	hour, minute, sec := 0, 0, 0
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
		if m[6] != "" {
			sec, _ = strconv.Atoi(m[6])
		}
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	if t.Day() != day || t.Month() != time.Month(month) {
		// Normalization moved the date (e.g. 31/02), so the input was bogus.
		return 0, false
	}
	return t.UnixMilli(), true
}
