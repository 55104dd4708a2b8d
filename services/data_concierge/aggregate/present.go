// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package aggregate

import (
	"sort"
	"time"

	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
	"github.com/AleutianAI/AleutianData/services/data_concierge/gateway"
)

// latestSampleSize is how many recent rows the summary carries.
const latestSampleSize = 5

// YearCount is one per-year tally entry.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// Summary is the compact whole-dataset digest used for "all data"
// fallback replies and the deep-fetch payload.
type Summary struct {
	Total        int             `json:"total"`
	Registered   int             `json:"registered"`
	Pending      int             `json:"pending"`
	PerYear      []YearCount     `json:"per_year"`
	LatestSample []datatypes.Row `json:"latest_sample,omitempty"`
}

// Present summarizes a row set: total, status mix, per-year tally sorted
// by descending count (ties keep first-seen year order), and a small
// newest-first sample.
func Present(rows []datatypes.Row) Summary {
	s := Summary{Total: len(rows)}

	counts := make(map[int]int)
	var firstSeen []int
	for _, row := range rows {
		if row.Status() == datatypes.StatusRegistered {
			s.Registered++
		} else {
			s.Pending++
		}
		ms, ok := row.Timestamp()
		if !ok {
			continue
		}
		y := time.UnixMilli(ms).UTC().Year()
		if _, seen := counts[y]; !seen {
			firstSeen = append(firstSeen, y)
		}
		counts[y]++
	}

	perYear := make([]YearCount, 0, len(firstSeen))
	for _, y := range firstSeen {
		perYear = append(perYear, YearCount{Year: y, Count: counts[y]})
	}
	sort.SliceStable(perYear, func(i, j int) bool {
		return perYear[i].Count > perYear[j].Count
	})
	s.PerYear = perYear

	sample := make([]datatypes.Row, len(rows))
	copy(sample, rows)
	gateway.SortByTimestampDesc(sample)
	if len(sample) > latestSampleSize {
		sample = sample[:latestSampleSize]
	}
	s.LatestSample = sample
	return s
}
