package main

import (
	"testing"
)

func TestClip(t *testing.T) {
	long := "a transcript that rambles on for quite a while longer than fits"
	got := clip(long, 20)
	if len([]rune(got)) != 20 {
		t.Errorf("clip returned %d runes, want 20", len([]rune(got)))
	}
	if got != "a transcript that..." {
		t.Errorf("clip(long, 20) = %q", got)
	}

	short := "brief note"
	if got := clip(short, 20); got != short {
		t.Errorf("clip(%q, 20) = %q, want unchanged", short, got)
	}
}
