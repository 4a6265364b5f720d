package models

import (
	"strings"
	"time"
)

// FilterAll disables an exact-match predicate.
const FilterAll = "all"

// DateRange bounds the submission timestamp, both ends inclusive. Empty strings are unbounded.
type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// FilterCriteria holds the transient list filters for one query.
type FilterCriteria struct {
	SearchTerm string       `json:"search,omitempty"`
	Status     string       `json:"status,omitempty"`
	Claim      string       `json:"claim,omitempty"`
	Member     string       `json:"member,omitempty"`
	DateRange  DateRange    `json:"dateRange"`
	Viewer     *ViewerScope `json:"-"`
}

// Active reports whether an exact-match criterion should be applied.
func Active(value string) bool {
	value = strings.TrimSpace(value)
	return value != "" && !strings.EqualFold(value, FilterAll)
}

// SubmissionStats aggregates a submission set.
type SubmissionStats struct {
	Total        int                      `json:"total"`
	ByStatus     map[SubmissionStatus]int `json:"byStatus"`
	Members      int                      `json:"members"`
	Participants int                      `json:"participants"`
}

// timestampLayouts lists accepted timestamp spellings, most specific first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-01-02",
	"1/2/2006",
}

const dateOnlyLayout = "2006-01-02"

// ParseTimestamp parses a submission timestamp in UTC. The boolean is false for blank or unknown formats.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseRangeEnd parses an upper bound; a date-only value covers the whole day.
func ParseRangeEnd(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if t, err := time.ParseInLocation(dateOnlyLayout, raw, time.UTC); err == nil {
		return t.Add(24*time.Hour - time.Nanosecond), true
	}
	return ParseTimestamp(raw)
}
