package extract

import "regexp"

// The pre-check is the cheap first stage of the two-stage filter: the
// extraction capability is a paid external call, so a transcript window only
// reaches it when a local heuristic suggests actionable content.

var (
	// imperative verbs commonly opening a task statement
	imperativeRe = regexp.MustCompile(`(?i)\b(send|schedule|prepare|review|update|create|draft|fix|finish|investigate|email|share|write|check|organize|book|ship|deploy|document)\b`)

	// deadline phrases: weekday/relative deadlines and explicit due markers
	deadlineRe = regexp.MustCompile(`(?i)\b(by\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday|tomorrow|tonight|noon|eod|eow)\b|by\s+(the\s+)?end\s+of\s+(the\s+)?(day|week|month)\b|deadline\b|due\s+(date|by|on|next)\b|next\s+(week|month|monday|tuesday|wednesday|thursday|friday)\b)`)

	// assignment phrases binding a task to a person
	assignmentRe = regexp.MustCompile(`(?i)\b(i'?ll\b|i\s+will\b|we'?ll\b|we\s+will\b|can\s+you\b|could\s+you\b|please\b|you\s+should\b|assigned\s+to\b|takes?\s+care\s+of\b|action\s+item\b|let'?s\b|make\s+sure\b|responsible\s+for\b)`)
)

// looksActionable reports whether a transcript window is worth sending to the
// extraction capability. False negatives cost a missed suggestion; false
// positives cost one capability call. The heuristic leans permissive.
func looksActionable(text string) bool {
	if text == "" {
		return false
	}
	return deadlineRe.MatchString(text) ||
		assignmentRe.MatchString(text) ||
		imperativeRe.MatchString(text)
}
