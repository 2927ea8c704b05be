package logger

import (
	"context"
	"testing"
)

func TestRIDRoundTrip(t *testing.T) {
	ctx := WithRID(context.Background(), "42:7:9")
	if got := RIDFrom(ctx); got != "42:7:9" {
		t.Fatalf("RIDFrom = %q, expected 42:7:9", got)
	}
	if got := RIDFrom(context.Background()); got != "" {
		t.Fatalf("RIDFrom on empty ctx = %q, expected empty", got)
	}
}

func TestUpdateMetaRoundTrip(t *testing.T) {
	ctx := WithUpdateMeta(context.Background(), 42, 7, 9)
	if got := UpdateIDFrom(ctx); got != 42 {
		t.Fatalf("UpdateIDFrom = %d, expected 42", got)
	}
	if got := UserIDFrom(ctx); got != 7 {
		t.Fatalf("UserIDFrom = %d, expected 7", got)
	}
	if got := ChatIDFrom(ctx); got != 9 {
		t.Fatalf("ChatIDFrom = %d, expected 9", got)
	}
}

func TestBuildRID(t *testing.T) {
	if got := BuildRID(42, 9, 7); got != "42:9:7" {
		t.Fatalf("BuildRID = %q", got)
	}
}

func TestSanitize(t *testing.T) {
	in := "hello\x00 world\nsecond\tline\x7f"
	out := Sanitize(in)
	if out != "hello world\nsecond\tline" {
		t.Fatalf("Sanitize = %q", out)
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("привет мир", 6); got != "привет" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("anything", 0); got != "" {
		t.Fatalf("SanitizeLimit with zero max = %q", got)
	}
}

func TestStatus(t *testing.T) {
	if got := Status(nil); got != "ok" {
		t.Fatalf("Status(nil) = %q", got)
	}
	if got := Status(context.Canceled); got != "fail" {
		t.Fatalf("Status(err) = %q", got)
	}
}
