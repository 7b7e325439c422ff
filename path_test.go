package salvage_test

import (
	"testing"

	salvage "github.com/reoring/salvage"
)

func TestPath_Pointer(t *testing.T) {
	cases := []struct {
		p    salvage.Path
		want string
	}{
		{salvage.Path{}, "/"},
		{salvage.Path{}.Field("content").Index(0).Field("marks").Index(2), "/content/0/marks/2"},
		{salvage.Path{}.Index(3), "/3"},
		{salvage.Path{}.Field("a/b").Field("c~d"), "/a~1b/c~0d"},
	}
	for _, tc := range cases {
		if got := tc.p.Pointer(); got != tc.want {
			t.Errorf("got %s, want %s", got, tc.want)
		}
	}
}

func TestPath_FieldDoesNotAlias(t *testing.T) {
	base := make(salvage.Path, 0, 8).Field("content")
	a := base.Index(0)
	b := base.Index(1)
	if a.Pointer() != "/content/0" || b.Pointer() != "/content/1" {
		t.Fatalf("paths alias: %s %s", a, b)
	}
	if !a.HasPrefix(base) || a.HasPrefix(b) {
		t.Fatal("HasPrefix mismatch")
	}
}
