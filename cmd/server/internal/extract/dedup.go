package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/go-dedup/simhash"
	"golang.org/x/text/cases"
)

// nearDupThreshold is the Hamming distance at or below which two item
// fingerprints count as the same item. Word-bigram features over short English
// descriptions separate cleanly around this bound.
const nearDupThreshold = 3

// normalizeText case-folds and whitespace-collapses an item description.
// Case folding via x/text handles non-ASCII correctly where ToLower does not.
func normalizeText(text string) string {
	folded := cases.Fold().String(text)
	return strings.Join(strings.Fields(folded), " ")
}

// DedupKey computes the normalized-text fingerprint used to suppress exact
// duplicate action items within a room session.
func DedupKey(text string) string {
	sum := sha256.Sum256([]byte(normalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// itemFeatureSet implements simhash.FeatureSet over word bigrams of a
// normalized description.
type itemFeatureSet struct {
	text string
}

// GetFeatures extracts word-bigram features, falling back to single words for
// very short descriptions.
func (s itemFeatureSet) GetFeatures() []simhash.Feature {
	words := strings.Fields(s.text)
	if len(words) == 0 {
		return []simhash.Feature{}
	}

	features := make([]simhash.Feature, 0, len(words))
	if len(words) < 3 {
		for _, w := range words {
			features = append(features, simhash.NewFeature([]byte(w)))
		}
		return features
	}
	for i := 0; i < len(words)-1; i++ {
		features = append(features, simhash.NewFeature([]byte(words[i]+" "+words[i+1])))
	}
	return features
}

// fingerprint computes the simhash of a normalized description.
func fingerprint(text string) uint64 {
	sh := simhash.NewSimhash()
	return sh.GetSimhash(itemFeatureSet{text: normalizeText(text)})
}

// hammingDistance counts differing bits between two fingerprints.
func hammingDistance(a, b uint64) int {
	x := a ^ b
	count := 0
	for x != 0 {
		count++
		x &= x - 1
	}
	return count
}

// isNearDuplicate reports whether fp is within nearDupThreshold of any
// previously emitted fingerprint.
func isNearDuplicate(fp uint64, emitted []uint64) bool {
	for _, prev := range emitted {
		if hammingDistance(fp, prev) <= nearDupThreshold {
			return true
		}
	}
	return false
}
