package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FilterPolicy controls which transcription results are discarded before they
// reach the sequencer. The denylist catches phrases that speech models tend to
// hallucinate on silence or music (promotional boilerplate, non-speech markers);
// MinChars treats very short results as silence.
//
// Deployments maintain this list in a YAML file; the compiled-in defaults apply
// when no file is configured.
type FilterPolicy struct {
	MinChars int      `yaml:"min_chars"`
	Denylist []string `yaml:"denylist"`
}

// DefaultFilterPolicy returns the compiled-in policy.
func DefaultFilterPolicy() FilterPolicy {
	return FilterPolicy{
		MinChars: 4,
		Denylist: []string{
			"thanks for watching",
			"please subscribe",
			"like and subscribe",
			"see you in the next video",
			"[music]",
			"[applause]",
			"[laughter]",
			"[blank_audio]",
			"[inaudible]",
			"www.",
			"transcribed by",
			"subtitles by",
		},
	}
}

// LoadFilterPolicy reads a policy file, falling back to defaults for any field
// the file leaves empty. An empty path returns the defaults unchanged.
func LoadFilterPolicy(path string) (FilterPolicy, error) {
	policy := DefaultFilterPolicy()
	if path == "" {
		return policy, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read filter policy: %w", err)
	}

	var loaded FilterPolicy
	if err := yaml.Unmarshal(b, &loaded); err != nil {
		return policy, fmt.Errorf("parse filter policy: %w", err)
	}

	if loaded.MinChars > 0 {
		policy.MinChars = loaded.MinChars
	}
	if len(loaded.Denylist) > 0 {
		policy.Denylist = loaded.Denylist
	}
	return policy, nil
}
