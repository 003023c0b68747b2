package wake

import "testing"

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestDetectExact(t *testing.T) {
	t.Parallel()
	d := newTestDetector(t)

	cases := []struct {
		name string
		text string
		want bool
	}{
		{"canonical", "sameer can you help me", true},
		{"canonical uppercase", "SAMEER are you there", true},
		{"misspelling", "samir what time is it", true},
		{"mid sentence", "I was wondering sameer if you could help", true},
		{"second phrase", "hey buddy what's up", true},
		{"no wake phrase", "what a lovely day outside", false},
		{"empty", "", false},
		{"whitespace only", "   \t  ", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := d.Detect(tc.text); got != tc.want {
				t.Errorf("Detect(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestDetectDevanagari(t *testing.T) {
	t.Parallel()
	d := newTestDetector(t)

	if !d.Detect("समीर क्या हाल है") {
		t.Error("Devanagari wake phrase not detected")
	}
	if !d.Detect("अरे समिर सुनो") {
		t.Error("Devanagari misspelling not detected")
	}
	if d.Detect("क्या हाल है") {
		t.Error("Devanagari text without wake phrase should not match")
	}
}

func TestDetectFuzzy(t *testing.T) {
	t.Parallel()
	d := newTestDetector(t)

	// One edit away from "sameer"; similarity 5/6 ≈ 0.83 clears the 0.70
	// threshold.
	if !d.Detect("sameed turn on the lights") {
		t.Error("near-miss token should match fuzzily")
	}
	// "tiger" vs "sameer" is far below threshold and phonetically distinct.
	if d.Detect("the tiger slept all day") {
		t.Error("unrelated token should not match")
	}
}

func TestDetectPhonetic(t *testing.T) {
	t.Parallel()
	d := newTestDetector(t)

	// Common mishearings absent from the exact phrase list.
	for _, text := range []string{
		"budi are you listening",
		"hey body wake up",
		"samar play some music",
	} {
		if !d.Detect(text) {
			t.Errorf("Detect(%q) = false, want phonetic match", text)
		}
	}
}

func TestExtractPayload(t *testing.T) {
	t.Parallel()
	d := newTestDetector(t)

	cases := []struct {
		name string
		text string
		want string
	}{
		{"greeting and phrase", "hey sameer how are you", "how are you"},
		{"greeting second phrase", "hey buddy what's up", "what's up"},
		{"phrase only prefix", "sameer tell me a joke", "tell me a joke"},
		{"with honorific", "sameer ji what is the weather", "what is the weather"},
		{"bare wake phrase", "sameer", "Yes?"},
		{"greeting plus bare phrase", "hey sameer!", "Yes?"},
		{"mid sentence", "I think sameer you should know this", "you should know this"},
		{"no wake phrase", "just talking to myself", "just talking to myself"},
		{"empty", "", "Yes?"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := d.ExtractPayload(tc.text); got != tc.want {
				t.Errorf("ExtractPayload(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestCustomConfig(t *testing.T) {
	t.Parallel()

	d, err := New(Config{
		Phrases:        []string{"jarvis", "hey jarvis"},
		FuzzyThreshold: 0.9,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !d.Detect("jarvis open the door") {
		t.Error("custom phrase not detected")
	}
	if d.Detect("sameer open the door") {
		t.Error("default phrase should not match a custom config")
	}
	// Threshold 0.9 rejects a two-edit variant.
	if d.Detect("jervas open the door") {
		t.Error("loose variant should not clear a 0.9 threshold")
	}
}

func TestInvalidPhoneticPattern(t *testing.T) {
	t.Parallel()

	_, err := New(Config{
		Phrases:          []string{"sameer"},
		PhoneticPatterns: []string{`[unclosed`},
	})
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}
