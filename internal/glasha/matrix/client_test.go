package matrix

import (
	"testing"
	"time"
)

func TestSyncBackoff_GrowsAndCaps(t *testing.T) {
	var b syncBackoff

	// Rapid failures: the delay doubles from the minimum.
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, w := range want {
		if got := b.next(0); got != w {
			t.Fatalf("next #%d = %v, want %v", i+1, got, w)
		}
	}

	// Keep failing until the cap is hit and stays there.
	for i := 0; i < 20; i++ {
		if got := b.next(0); got > syncBackoffMax {
			t.Fatalf("delay %v exceeds cap %v", got, syncBackoffMax)
		}
	}
	if got := b.next(0); got != syncBackoffMax {
		t.Errorf("capped delay = %v, want %v", got, syncBackoffMax)
	}
}

func TestSyncBackoff_ResetsAfterHealthyRun(t *testing.T) {
	var b syncBackoff
	for i := 0; i < 5; i++ {
		b.next(0)
	}

	// A sync that stayed up for an hour counts as recovered.
	if got := b.next(time.Hour); got != syncBackoffMin {
		t.Errorf("delay after healthy run = %v, want %v", got, syncBackoffMin)
	}
	if got := b.next(0); got != 2*syncBackoffMin {
		t.Errorf("delay after next failure = %v, want %v", got, 2*syncBackoffMin)
	}
}
