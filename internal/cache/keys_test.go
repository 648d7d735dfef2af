package cache

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestExportStatusKey(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	if got := ExportStatusKey(id); got != "export:11111111-2222-3333-4444-555555555555" {
		t.Errorf("unexpected key: %s", got)
	}
}

func TestRateLimitKey(t *testing.T) {
	if got := RateLimitKey("slk_abcd"); got != "ratelimit:slk_abcd" {
		t.Errorf("unexpected key: %s", got)
	}
}

func TestSearchKey_StableAndDistinct(t *testing.T) {
	a := SearchKey("crane does not lift", "en", "hydraulics", 5)
	b := SearchKey("crane does not lift", "en", "hydraulics", 5)
	if a != b {
		t.Errorf("same inputs must produce the same key: %s != %s", a, b)
	}
	if !strings.HasPrefix(a, "kb:search:") {
		t.Errorf("unexpected prefix: %s", a)
	}

	c := SearchKey("crane does not lift", "sv", "hydraulics", 5)
	if a == c {
		t.Error("different language must produce a different key")
	}
	d := SearchKey("crane does not lift", "en", "hydraulics", 10)
	if a == d {
		t.Error("different topK must produce a different key")
	}
}

func TestSearchKey_LongQueryStaysBounded(t *testing.T) {
	long := strings.Repeat("kran ", 300)
	key := SearchKey(long, "sv", "", 5)
	if len(key) > 64 {
		t.Errorf("key too long: %d chars", len(key))
	}
}
