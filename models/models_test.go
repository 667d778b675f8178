package models

import (
	"testing"
	"time"
)

func TestAnswersScanKeepsIntegers(t *testing.T) {
	var a Answers
	if err := a.Scan(`{"q1":7,"q2":"ok","q3":null}`); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if v, ok := a["q1"].(int64); !ok || v != 7 {
		t.Fatalf("expected int64 7, got %#v", a["q1"])
	}
	if a["q2"] != "ok" {
		t.Fatalf("expected string, got %#v", a["q2"])
	}
	if v, ok := a["q3"]; !ok || v != nil {
		t.Fatalf("expected explicit null to be kept, got %#v (present %v)", v, ok)
	}

	if err := a.Scan(nil); err != nil || len(a) != 0 {
		t.Fatalf("expected empty answers for NULL, got %v %v", a, err)
	}
	if err := a.Scan(42); err == nil {
		t.Fatalf("expected an error for an unsupported column type")
	}
}

func TestAnswersMergeDoesNotMutate(t *testing.T) {
	base := Answers{"q1": int64(3)}
	merged := base.Merge(map[string]any{"q1": int64(4), "q2": nil})
	if base["q1"] != int64(3) {
		t.Fatalf("base mutated: %v", base)
	}
	if merged["q1"] != int64(4) || len(merged) != 2 {
		t.Fatalf("unexpected merge %v", merged)
	}
}

func TestParseRef(t *testing.T) {
	cases := map[string]int64{
		"srv_12":  12,
		"srv_":    0,
		"srv_x":   0,
		"srv_-1":  0,
		"rsp_12":  0,
		"12":      0,
		"srv_1_2": 0,
	}
	for in, want := range cases {
		got, ok := ParseRef("srv", in)
		if want == 0 && ok {
			t.Fatalf("ParseRef(%q) accepted as %d", in, got)
		}
		if want != 0 && (!ok || got != want) {
			t.Fatalf("ParseRef(%q) = %d, %v", in, got, ok)
		}
	}
	if SurveyRef(5) != "srv_5" || ResponseRef(5) != "rsp_5" || PersonRef(5) != "usr_5" {
		t.Fatalf("unexpected refs")
	}
}

func TestSurveyTitleAndClosed(t *testing.T) {
	deadline := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	s := Survey{ReviewType: REVIEW_TYPE_180, Deadline: deadline}
	if s.DisplayTitle() != "180 Engineering 360" {
		t.Fatalf("unexpected title %q", s.DisplayTitle())
	}
	if s.IsClosed(deadline) || !s.IsClosed(deadline.Add(time.Second)) {
		t.Fatalf("deadline instant must still be open")
	}
	if (Survey{}).DisplayTitle() != "360 Survey" {
		t.Fatalf("unexpected fallback title")
	}
}

func TestJSONBlobNull(t *testing.T) {
	var j JSONBlob
	b, err := j.MarshalJSON()
	if err != nil || string(b) != "null" {
		t.Fatalf("expected null, got %s %v", b, err)
	}
	if v, _ := j.Value(); v != nil {
		t.Fatalf("expected NULL column, got %v", v)
	}
}
