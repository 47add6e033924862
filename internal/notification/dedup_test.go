package notification

import "testing"

func TestDeliveredSetSuppression(t *testing.T) {
	set := NewDeliveredSet()

	if !set.ShouldPresent("abc") {
		t.Error("first delivery should present")
	}
	set.Mark("abc")

	if set.ShouldPresent("abc") {
		t.Error("second delivery of the same id should be suppressed")
	}
	if !set.ShouldPresent("def") {
		t.Error("unrelated id should present")
	}
}

func TestDeliveredSetsAreIndependent(t *testing.T) {
	// One set per presentation context: marking in one context must not
	// suppress in another.
	a := NewDeliveredSet()
	b := NewDeliveredSet()

	a.Mark("abc")
	if a.ShouldPresent("abc") {
		t.Error("context a should suppress")
	}
	if !b.ShouldPresent("abc") {
		t.Error("context b should still present")
	}
}

func TestDeliveredSetLen(t *testing.T) {
	set := NewDeliveredSet()
	set.Mark("a")
	set.Mark("b")
	set.Mark("a")
	if got := set.Len(); got != 2 {
		t.Errorf("Len: got %d, want 2", got)
	}
}

func TestStyleForDefaults(t *testing.T) {
	known := StyleFor(TypeLeaveApproved)
	if known.Icon != "check-circle" {
		t.Errorf("known type icon: got %q", known.Icon)
	}

	for _, typ := range []string{"", "SOMETHING_NEW"} {
		if got := StyleFor(typ); got != defaultStyle {
			t.Errorf("StyleFor(%q) should fall back to default, got %+v", typ, got)
		}
	}
}
