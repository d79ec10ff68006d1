package registry

import (
	"path/filepath"
	"testing"
)

func TestCommonAncestor(t *testing.T) {
	p := filepath.FromSlash

	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{"empty", nil, ""},
		{"single file", []string{p("/ws/tests/ATest.php")}, p("/ws/tests")},
		{"siblings", []string{p("/ws/tests/Unit/ATest.php"), p("/ws/tests/Feature/BTest.php")}, p("/ws/tests")},
		{"segment boundary", []string{p("/ws/tests-a/ATest.php"), p("/ws/tests-b/BTest.php")}, p("/ws")},
		{"nested", []string{p("/ws/tests/ATest.php"), p("/ws/tests/Unit/Deep/BTest.php")}, p("/ws/tests")},
		{"only root shared", []string{p("/a/ATest.php"), p("/b/BTest.php")}, p("/")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CommonAncestor(tt.files); got != tt.want {
				t.Errorf("CommonAncestor(%v) = %q, want %q", tt.files, got, tt.want)
			}
		})
	}
}

func TestRelativeSegments(t *testing.T) {
	p := filepath.FromSlash

	segs, ok := relativeSegments(p("/ws/tests"), p("/ws/tests/Unit/Math/ATest.php"))
	if !ok || len(segs) != 2 || segs[0] != "Unit" || segs[1] != "Math" {
		t.Errorf("unexpected segments %v (%v)", segs, ok)
	}

	if segs, ok := relativeSegments(p("/ws/tests"), p("/ws/tests/ATest.php")); !ok || len(segs) != 0 {
		t.Errorf("expected no segments, got %v (%v)", segs, ok)
	}

	if _, ok := relativeSegments(p("/ws/tests"), p("/ws/other/ATest.php")); ok {
		t.Error("expected file outside ancestor to be rejected")
	}

	if _, ok := relativeSegments("", p("/ws/ATest.php")); ok {
		t.Error("expected empty ancestor to be rejected")
	}
}
