// Package command classifies a finalized utterance into a spoken diary
// command, or reports that it is free text.
//
// Classification is pure and deterministic: a fixed-priority rule table
// is evaluated in order and the first match wins. Anything that matches
// no rule is free text and belongs in the diary draft. Each rule is a
// (matcher, constructor) pair so rules stay independently testable and
// the classifier itself carries no state.
package command

import (
	"regexp"
	"strings"
)

// Kind identifies a spoken command.
type Kind int

const (
	// KindNone marks the zero Command; Classify never returns it with ok=true.
	KindNone Kind = iota

	// KindListJobs lists the user's jobs.
	KindListJobs

	// KindCreateJob creates a job named by Arg.
	KindCreateJob

	// KindSelectJob switches the active job to the one matching Arg.
	KindSelectJob

	// KindSetStatus sets the active job's status to Arg
	// (one of complete, in_progress, on_hold, quoted).
	KindSetStatus

	// KindSetStage sets the active job's stage to Arg.
	KindSetStage

	// KindSearchEntries searches entries for Arg.
	KindSearchEntries

	// KindShowAllEntries exits a search view and shows all entries.
	KindShowAllEntries

	// KindSaveDebrief records a one-shot debrief, distinct from the draft.
	// Arg carries inline debrief text when spoken, otherwise empty and the
	// executor uses the current draft.
	KindSaveDebrief

	// KindSaveDraft finalizes and submits the running draft.
	KindSaveDraft
)

// String returns the kind name for logs and tests.
func (k Kind) String() string {
	switch k {
	case KindListJobs:
		return "list_jobs"
	case KindCreateJob:
		return "create_job"
	case KindSelectJob:
		return "select_job"
	case KindSetStatus:
		return "set_status"
	case KindSetStage:
		return "set_stage"
	case KindSearchEntries:
		return "search_entries"
	case KindShowAllEntries:
		return "show_all_entries"
	case KindSaveDebrief:
		return "save_debrief"
	case KindSaveDraft:
		return "save_draft"
	}
	return "none"
}

// Command is a classified utterance.
type Command struct {
	Kind Kind

	// Arg is the rule-specific argument: job name, search query,
	// canonical status, stage value, or inline debrief text.
	Arg string
}

// rule pairs a matcher with the Kind it constructs. Matchers receive the
// trimmed utterance with trailing punctuation removed; case handling is
// per-rule so captured arguments keep their spoken casing.
type rule struct {
	name  string
	match func(text string) (arg string, ok bool)
	kind  Kind
}

var (
	reListJobs   = regexp.MustCompile(`(?i)^(?:list|show)(?: (?:my|all|the))? jobs$`)
	reCreateJob  = regexp.MustCompile(`(?i)^(?:new|create|start|add)(?: a)? job(?: named| called)? (.+)$`)
	reSelectJob  = regexp.MustCompile(`(?i)^(?:(?:switch to|select|open|go to|use)(?: the)? job (.+)|switch to (.+))$`)
	reSetStatus  = regexp.MustCompile(`(?i)^(?:(?:mark|set)(?: (?:it|this|the job|job|status))?(?: (?:as|to))? (.+)|(?:job|it)(?: is|'s)? (.+))$`)
	reSearch     = regexp.MustCompile(`(?i)^(?:search|find)(?: entries)?(?: for)? (.+)$`)
	reAllEntries = regexp.MustCompile(`(?i)^(?:(?:show|list)(?: me)? all entries|clear search)$`)
	reSetStage   = regexp.MustCompile(`(?i)^(?:set(?: the)?(?: job)? stage(?: is| to)?|move to stage) (.+)$`)
	reDebrief    = regexp.MustCompile(`(?i)^(?:save(?: (?:it|this))? as(?: a)? debrief|debrief[:,]? (.+))$`)
)

// saveDraftPhrases are matched verbatim after normalization. "save it"
// must always classify; it can never fall through to free text.
var saveDraftPhrases = map[string]bool{
	"save":           true,
	"save it":        true,
	"save now":       true,
	"save entry":     true,
	"save this":      true,
	"save the entry": true,
	"save draft":     true,
}

// statusSynonyms maps spoken status phrases to canonical job statuses.
var statusSynonyms = map[string]string{
	"done":        "complete",
	"complete":    "complete",
	"completed":   "complete",
	"finished":    "complete",
	"in progress": "in_progress",
	"in-progress": "in_progress",
	"started":     "in_progress",
	"on hold":     "on_hold",
	"hold":        "on_hold",
	"paused":      "on_hold",
	"quoted":      "quoted",
}

// rules is the fixed-priority table. Order is part of the contract.
var rules = []rule{
	{
		name: "list_jobs",
		kind: KindListJobs,
		match: func(text string) (string, bool) {
			return "", reListJobs.MatchString(text)
		},
	},
	{
		name: "create_job",
		kind: KindCreateJob,
		match: func(text string) (string, bool) {
			m := reCreateJob.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			return strings.TrimSpace(m[1]), true
		},
	},
	{
		name: "select_job",
		kind: KindSelectJob,
		match: func(text string) (string, bool) {
			m := reSelectJob.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			arg := m[1]
			if arg == "" {
				arg = m[2]
			}
			return strings.TrimSpace(arg), true
		},
	},
	{
		name: "set_status",
		kind: KindSetStatus,
		match: func(text string) (string, bool) {
			m := reSetStatus.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			phrase := m[1]
			if phrase == "" {
				phrase = m[2]
			}
			status, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(phrase))]
			return status, ok
		},
	},
	{
		name: "search_entries",
		kind: KindSearchEntries,
		match: func(text string) (string, bool) {
			m := reSearch.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			return strings.TrimSpace(m[1]), true
		},
	},
	{
		name: "show_all_entries",
		kind: KindShowAllEntries,
		match: func(text string) (string, bool) {
			return "", reAllEntries.MatchString(text)
		},
	},
	{
		name: "set_stage",
		kind: KindSetStage,
		match: func(text string) (string, bool) {
			m := reSetStage.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			return strings.TrimSpace(m[1]), true
		},
	},
	{
		name: "save_debrief",
		kind: KindSaveDebrief,
		match: func(text string) (string, bool) {
			m := reDebrief.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			return strings.TrimSpace(m[1]), true
		},
	},
	{
		name: "save_draft",
		kind: KindSaveDraft,
		match: func(text string) (string, bool) {
			return "", saveDraftPhrases[strings.ToLower(text)]
		},
	},
}

// Classify evaluates the rule table against one finalized utterance.
// It reports ok=false for free text, which the caller routes to the draft.
func Classify(text string) (Command, bool) {
	text = normalize(text)
	if text == "" {
		return Command{}, false
	}
	for _, r := range rules {
		if arg, ok := r.match(text); ok {
			return Command{Kind: r.kind, Arg: arg}, true
		}
	}
	return Command{}, false
}

// normalize trims whitespace and strips trailing punctuation that speech
// recognition tends to add.
func normalize(text string) string {
	text = strings.TrimSpace(text)
	return strings.TrimRight(text, ".!?, ")
}
