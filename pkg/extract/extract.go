// Package extract pulls structured fields out of a spoken job debrief.
// Extraction is deterministic pattern matching; it never blocks submit
// and an empty result is a valid result.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Fields is the structured data lifted from one transcript.
type Fields struct {
	// Hours is the total hours worked mentioned, 0 when absent.
	Hours float64 `json:"hours,omitempty"`

	// Costs are monetary amounts mentioned, in order of appearance.
	Costs []float64 `json:"costs,omitempty"`

	// Materials are material mentions ("used ...", "installed ...").
	Materials []string `json:"materials,omitempty"`

	// NextActions are follow-up phrases ("need to ...", "tomorrow ...").
	NextActions []string `json:"next_actions,omitempty"`
}

// Empty reports whether nothing was extracted.
func (f Fields) Empty() bool {
	return f.Hours == 0 && len(f.Costs) == 0 && len(f.Materials) == 0 && len(f.NextActions) == 0
}

// Map renders the fields as a JSON-ready map, omitting empty values.
// The diary service stores extraction as a free-form object.
func (f Fields) Map() map[string]any {
	m := map[string]any{}
	if f.Hours > 0 {
		m["hours"] = f.Hours
	}
	if len(f.Costs) > 0 {
		m["costs"] = f.Costs
	}
	if len(f.Materials) > 0 {
		m["materials"] = f.Materials
	}
	if len(f.NextActions) > 0 {
		m["next_actions"] = f.NextActions
	}
	return m
}

var (
	reHours = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hours?|hrs?)\b`)
	reHalf  = regexp.MustCompile(`(?i)\b(?:half a day|half day)\b`)
	reDay   = regexp.MustCompile(`(?i)\b(?:a full day|full day|whole day)\b`)

	reCost = regexp.MustCompile(`(?i)(?:\$|aud\s*)(\d+(?:,\d{3})*(?:\.\d{1,2})?)|(\d+(?:\.\d{1,2})?)\s*(?:dollars|bucks)\b`)

	// The captured phrase must not swallow the separator space, or the
	// stop-word boundary can never match.
	reMaterial = regexp.MustCompile(`(?i)\b(?:used|installed|fitted|laid|picked up|bought|ordered)\s+([\w-]+(?:\s[\w-]+){0,5}?)(?:[.,;]|\s(?:and|then|for|at|on|in)\b|$)`)

	reNextAction = regexp.MustCompile(`(?i)\b(?:need to|needs to|have to|still got to|gotta|tomorrow(?: i(?:'ll| will| need to)?)?|next (?:week|visit)[,:]?)\s+((?:[\w'-]+\s?){1,10}?)(?:[.,;]|$)`)
)

// Parse extracts structured fields from a transcript.
func Parse(transcript string) Fields {
	var f Fields

	for _, m := range reHours.FindAllStringSubmatch(transcript, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			f.Hours += v
		}
	}
	if f.Hours == 0 {
		if reHalf.MatchString(transcript) {
			f.Hours = 4
		} else if reDay.MatchString(transcript) {
			f.Hours = 8
		}
	}

	for _, m := range reCost.FindAllStringSubmatch(transcript, -1) {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		raw = strings.ReplaceAll(raw, ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			f.Costs = append(f.Costs, v)
		}
	}

	for _, m := range reMaterial.FindAllStringSubmatch(transcript, -1) {
		if item := strings.TrimSpace(m[1]); item != "" {
			f.Materials = append(f.Materials, strings.ToLower(item))
		}
	}

	for _, m := range reNextAction.FindAllStringSubmatch(transcript, -1) {
		if action := strings.TrimSpace(m[1]); action != "" {
			f.NextActions = append(f.NextActions, strings.ToLower(action))
		}
	}

	return f
}
