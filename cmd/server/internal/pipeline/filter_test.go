package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/livemeet/livemeet/cmd/server/internal/config"
)

func TestFilterCheck(t *testing.T) {
	f := NewFilter(config.DefaultFilterPolicy())

	tests := []struct {
		name   string
		text   string
		reason string
		pass   bool
	}{
		{"normal speech", "Let's review the launch plan for next week", "", true},
		{"empty", "", FilterReasonEmpty, false},
		{"whitespace only", "   \n\t ", FilterReasonEmpty, false},
		{"too short", "uh", FilterReasonTooShort, false},
		{"denylist phrase", "Thanks for watching! Please subscribe!", FilterReasonDenylist, false},
		{"denylist is case insensitive", "THANKS FOR WATCHING everyone", FilterReasonDenylist, false},
		{"denylist mid-sentence", "okay so [music] plays here", FilterReasonDenylist, false},
		{"short but above minimum", "okay", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := f.Check(tt.text)
			assert.Equal(t, tt.pass, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestFilterCustomPolicy(t *testing.T) {
	f := NewFilter(config.FilterPolicy{
		MinChars: 10,
		Denylist: []string{"  Off The Record  "},
	})

	reason, ok := f.Check("short one")
	assert.False(t, ok)
	assert.Equal(t, FilterReasonTooShort, reason)

	reason, ok = f.Check("this part is off the record, skip it")
	assert.False(t, ok)
	assert.Equal(t, FilterReasonDenylist, reason)

	_, ok = f.Check("a perfectly normal sentence")
	assert.True(t, ok)
}
