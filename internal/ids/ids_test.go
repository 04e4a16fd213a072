package ids

import "testing"

func TestNewIsUniqueAndSortable(t *testing.T) {
	a := New()
	b := New()
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
	if len(a) != 26 {
		t.Fatalf("expected 26 char ulid, got %q", a)
	}
	if !(a < b) {
		t.Fatalf("expected monotonic ids, got %q then %q", a, b)
	}
}
