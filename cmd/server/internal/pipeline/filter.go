package pipeline

import (
	"strings"

	"github.com/livemeet/livemeet/cmd/server/internal/config"
)

// Filter reasons reported to metrics and logs.
const (
	FilterReasonEmpty    = "empty"
	FilterReasonTooShort = "too_short"
	FilterReasonDenylist = "denylist"
)

// Filter discards transcription results that are transcription artifacts
// rather than speech. Matching is case-insensitive substring matching over
// the configured denylist.
type Filter struct {
	minChars int
	denylist []string
}

// NewFilter builds a filter from the loaded policy.
func NewFilter(policy config.FilterPolicy) *Filter {
	denylist := make([]string, 0, len(policy.Denylist))
	for _, phrase := range policy.Denylist {
		if p := strings.ToLower(strings.TrimSpace(phrase)); p != "" {
			denylist = append(denylist, p)
		}
	}
	return &Filter{minChars: policy.MinChars, denylist: denylist}
}

// Check reports whether text should pass through to the sequencer. When it
// should not, reason names the rule that rejected it.
func (f *Filter) Check(text string) (reason string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return FilterReasonEmpty, false
	}
	if len([]rune(trimmed)) < f.minChars {
		return FilterReasonTooShort, false
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range f.denylist {
		if strings.Contains(lower, phrase) {
			return FilterReasonDenylist, false
		}
	}
	return "", true
}
