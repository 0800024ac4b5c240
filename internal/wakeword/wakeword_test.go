package wakeword

import "testing"

func TestContainsWakeWord(t *testing.T) {
	d := NewDetector()

	cases := []struct {
		text string
		want bool
	}{
		{"Hi Aria", true},
		{"hi aria, show mandi prices", true},
		{"Hey Arya what's the weather", true},
		{"okay ariya", true},
		{"Aria", true},
		{"हाय आरिया", true},
		{"ओके आरिया मंडी भाव बताओ", true},
		{"नमस्ते आरिया", true},
		// Name anywhere in the utterance still wakes.
		{"I said aria can you hear me", true},
		{"क्या आरिया सुन रही हो", true},
		// Non-matches.
		{"show mandi prices", false},
		{"malaria season is coming", false},
		{"", false},
		{"   ", false},
	}

	for _, tc := range cases {
		if got := d.ContainsWakeWord(tc.text); got != tc.want {
			t.Errorf("ContainsWakeWord(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestExtractCommand(t *testing.T) {
	d := NewDetector()

	cases := []struct {
		text string
		want string
	}{
		{"Hi Aria, show mandi prices", "show mandi prices"},
		{"hey aria what's the weather", "what's the weather"},
		{"okay aria. कटाई कब करें", "कटाई कब करें"},
		{"हाय आरिया मंडी भाव बताओ", "मंडी भाव बताओ"},
		{"Aria stop", "stop"},
		// Bare wake phrase: stripping would leave nothing, so the
		// original comes back unchanged.
		{"Hi Aria", "Hi Aria"},
		{"hi aria!", "hi aria!"},
		{"आरिया", "आरिया"},
		// No wake prefix at all.
		{"show mandi prices", "show mandi prices"},
	}

	for _, tc := range cases {
		if got := d.ExtractCommand(tc.text); got != tc.want {
			t.Errorf("ExtractCommand(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestHasResidualCommand(t *testing.T) {
	d := NewDetector()

	cases := []struct {
		text string
		want bool
	}{
		{"Hi Aria, show mandi prices", true},
		{"हाय आरिया मंडी भाव बताओ", true},
		{"Hi Aria", false},
		{"आरिया", false},
		{"show mandi prices", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := d.HasResidualCommand(tc.text); got != tc.want {
			t.Errorf("HasResidualCommand(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
