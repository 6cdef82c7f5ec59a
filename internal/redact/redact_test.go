package redact

import "testing"

func TestMaskSpansReplacesWithEqualLengthRuns(t *testing.T) {
	begin, end := 7, 11
	text := "Hello, John"
	spans := []EntitySpan{{EntityType: "NAME", Begin: &begin, End: &end}}
	got := MaskSpans(text, spans)
	if got != "Hello, XXXX" {
		t.Fatalf("got %q", got)
	}
}

func TestMaskSpansIdempotentUnderOverlap(t *testing.T) {
	text := "Hello, John Smith"
	b1, e1 := 7, 11
	b2, e2 := 7, 17
	order1 := MaskSpans(text, []EntitySpan{{Begin: &b1, End: &e1}, {Begin: &b2, End: &e2}})
	order2 := MaskSpans(text, []EntitySpan{{Begin: &b2, End: &e2}, {Begin: &b1, End: &e1}})
	if order1 != order2 {
		t.Fatalf("mask order dependent: %q vs %q", order1, order2)
	}
}

func TestMaskSpansSkipsNilOffsets(t *testing.T) {
	text := "hello"
	got := MaskSpans(text, []EntitySpan{{EntityType: "X"}})
	if got != text {
		t.Fatalf("expected unchanged text, got %q", got)
	}
}

func TestTruncateToCodePointsRespectsRuneBoundary(t *testing.T) {
	s := "héllo"
	got := TruncateToCodePoints(s, 2)
	if got != "hé" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateToCodePointsNoTruncationWhenLonger(t *testing.T) {
	s := "hi"
	if got := TruncateToCodePoints(s, 100); got != s {
		t.Fatalf("got %q", got)
	}
}

func TestStripSeparatorRemovesAllOccurrences(t *testing.T) {
	sep := "##SEP##"
	got := StripSeparator(sep, "prefix "+sep+" middle "+sep+" suffix")
	if got != "prefix  middle  suffix" {
		t.Fatalf("got %q", got)
	}
}
