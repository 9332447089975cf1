package docstore

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFormatTimeSortsLexically(t *testing.T) {
	a := FormatTime(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	b := FormatTime(time.Date(2025, 1, 1, 0, 0, 0, 500, time.UTC))
	c := FormatTime(time.Date(2025, 1, 1, 0, 0, 1, 0, time.FixedZone("X", 3600)))
	if len(a) != len(b) || len(b) != len(c) {
		t.Fatalf("expected fixed width encodings: %q %q %q", a, b, c)
	}
	if !(a < b) {
		t.Fatalf("expected %q < %q", a, b)
	}
	if !(c < a) {
		t.Fatalf("offset time should normalize to UTC before %q, got %q", a, c)
	}
}

func TestAsHelpersTolerateMixedShapes(t *testing.T) {
	if got := AsInt(json.Number("3")); got != 3 {
		t.Fatalf("AsInt json.Number = %d", got)
	}
	if got := AsFloat(int64(1200)); got != 1200 {
		t.Fatalf("AsFloat int64 = %v", got)
	}
	if got := AsStrings([]any{" eco ", "", 5}); len(got) != 2 || got[0] != "eco" || got[1] != "5" {
		t.Fatalf("AsStrings = %v", got)
	}
	if AsStringPtr("  ") != nil {
		t.Fatalf("blank string should map to nil")
	}
	if !AsTime("garbage").IsZero() {
		t.Fatalf("unparseable time should be zero")
	}
	ts := time.Date(2025, 2, 2, 2, 2, 2, 0, time.UTC)
	if !AsTime(FormatTime(ts)).Equal(ts) {
		t.Fatalf("encoded time should round trip")
	}
}

func TestCompareValuesAcrossEncodings(t *testing.T) {
	ts := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	if compareValues(FormatTime(ts), ts) != 0 {
		t.Fatalf("string and native time should compare equal")
	}
	if compareValues(int64(2), 10.5) >= 0 {
		t.Fatalf("expected 2 < 10.5")
	}
	if compareValues(false, true) >= 0 {
		t.Fatalf("expected false < true")
	}
}
