package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksActionable(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"deadline phrase", "I'll send the report by Friday", true},
		{"imperative verb", "review the design before the demo", true},
		{"assignment phrase", "can you take a look at the numbers", true},
		{"explicit action item", "action item: update the runbook", true},
		{"end of week", "we need this done by end of week", true},
		{"small talk", "nice weather today", false},
		{"greeting", "good morning everyone", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, looksActionable(tt.text))
		})
	}
}

func TestDedupKeyNormalization(t *testing.T) {
	assert.Equal(t, DedupKey("Send Report"), DedupKey("send   report"))
	assert.Equal(t, DedupKey("  send report  "), DedupKey("send\treport"))
	assert.NotEqual(t, DedupKey("send report"), DedupKey("send invoice"))
}

func TestNearDuplicateFingerprints(t *testing.T) {
	a := fingerprint("send the quarterly report to finance by friday")
	b := fingerprint("send the quarterly report to finance by Friday")
	c := fingerprint("book a meeting room for the retrospective next week")

	assert.True(t, isNearDuplicate(a, []uint64{b}), "trivial rephrasing should collide")
	assert.False(t, isNearDuplicate(a, []uint64{c}), "unrelated items should not collide")
	assert.False(t, isNearDuplicate(a, nil))
}

func TestHammingDistance(t *testing.T) {
	assert.Equal(t, 0, hammingDistance(0xff, 0xff))
	assert.Equal(t, 8, hammingDistance(0xff, 0x00))
	assert.Equal(t, 1, hammingDistance(0b1000, 0b0000))
}

func TestHeuristicAnalyzer(t *testing.T) {
	a := NewHeuristicAnalyzer()

	items, err := a.Extract(context.Background(), "Great point. I'll send the report by Friday. Anything else?", "")
	assert.NoError(t, err)
	if assert.Len(t, items, 1) {
		assert.Contains(t, items[0].Description, "send the report")
		assert.Equal(t, "friday", items[0].Deadline)
	}

	items, err = a.Extract(context.Background(), "Just chatting about the weekend", "")
	assert.NoError(t, err)
	assert.Empty(t, items)
}
