package session

import "testing"

func TestAccumulatorFlush(t *testing.T) {
	t.Parallel()

	var a Accumulator
	a.Append("i had a", 0.91)
	a.Append("really long day", 0.84)

	utt, conf, ok := a.Flush()
	if !ok {
		t.Fatal("Flush returned ok=false for a full buffer")
	}
	if utt != "i had a really long day" {
		t.Errorf("utterance = %q", utt)
	}
	if conf != 0.84 {
		t.Errorf("confidence = %v, want the last fragment's 0.84", conf)
	}
	if a.Len() != 0 {
		t.Errorf("Len after flush = %d, want 0", a.Len())
	}

	// Second flush has nothing, and the confidence is gone with the buffer.
	if _, conf, ok := a.Flush(); ok || conf != 0 {
		t.Errorf("Flush on empty buffer = conf %v, ok %v", conf, ok)
	}
}

func TestAccumulatorIgnoresBlankFragments(t *testing.T) {
	t.Parallel()

	var a Accumulator
	a.Append("", 0.9)
	a.Append("   ", 0.9)
	if a.Len() != 0 {
		t.Errorf("Len = %d, want 0", a.Len())
	}
}

func TestAccumulatorMinLengthGuard(t *testing.T) {
	t.Parallel()

	var a Accumulator
	a.Append("uh", 0.5)
	if _, _, ok := a.Flush(); ok {
		t.Error("two-letter utterance passed the minimum-length guard")
	}
	if a.Len() != 0 {
		t.Error("discarded utterance left fragments behind")
	}

	// Punctuation does not count as meaningful.
	a.Append("a.. !?", 0.5)
	if _, _, ok := a.Flush(); ok {
		t.Error("punctuation-heavy utterance passed the guard")
	}

	a.Append("okay", 0.7)
	if utt, conf, ok := a.Flush(); !ok || utt != "okay" || conf != 0.7 {
		t.Errorf("Flush = %q, %v, %v; want okay, 0.7, true", utt, conf, ok)
	}
}
