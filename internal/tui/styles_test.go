package tui

import (
	"strings"
	"testing"
)

func TestTypeChipKnownTypes(t *testing.T) {
	types := []string{"info", "success", "warning", "error", "release_notes"}

	for _, typ := range types {
		t.Run(typ, func(t *testing.T) {
			chip := typeChip(typ)
			if chip == "" {
				t.Errorf("typeChip(%q) returned empty string", typ)
			}
		})
	}
}

func TestTypeChipUnknownStillRenders(t *testing.T) {
	got := typeChip("nonexistent-type-xyz")
	if !strings.Contains(got, "nonexistent-type-xyz") {
		t.Errorf("typeChip(unknown) = %q, want the type text rendered", got)
	}
}

func TestPriorityChip(t *testing.T) {
	for _, p := range []string{"low", "medium", "high", "critical"} {
		t.Run(p, func(t *testing.T) {
			chip := priorityChip(p)
			if !strings.Contains(chip, p) {
				t.Errorf("priorityChip(%q) = %q, want to contain %q", p, chip, p)
			}
		})
	}
}

func TestPriorityChipEmptyPriority(t *testing.T) {
	if got := priorityChip(""); got != "" {
		t.Errorf("priorityChip(\"\") = %q, want empty string", got)
	}
}

func TestUnreadBadge(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{1, "1"},
		{42, "42"},
		{99, "99"},
		{100, "99+"},
		{350, "99+"},
	}

	for _, tc := range tests {
		badge := unreadBadge(tc.count)
		if !strings.Contains(badge, tc.want) {
			t.Errorf("unreadBadge(%d) = %q, want to contain %q", tc.count, badge, tc.want)
		}
	}
}

func TestUnreadBadgeZeroIsEmpty(t *testing.T) {
	if got := unreadBadge(0); got != "" {
		t.Errorf("unreadBadge(0) = %q, want empty string", got)
	}
}

func TestHelpEntryFormat(t *testing.T) {
	result := helpEntry("q", "quit")
	if !strings.Contains(result, "q") {
		t.Errorf("helpEntry('q','quit') does not contain key 'q': %q", result)
	}
	if !strings.Contains(result, "quit") {
		t.Errorf("helpEntry('q','quit') does not contain label 'quit': %q", result)
	}
}

func TestCenterLine(t *testing.T) {
	got := centerLine("ab", 10)
	if !strings.HasPrefix(got, "    ") {
		t.Errorf("centerLine('ab', 10) = %q, want 4 leading spaces", got)
	}
	if !strings.Contains(got, "ab") {
		t.Errorf("centerLine lost the content: %q", got)
	}
}

func TestCenterLineWiderContentUnpadded(t *testing.T) {
	got := centerLine("abcdef", 4)
	if got != "abcdef" {
		t.Errorf("centerLine with content wider than width should not pad, got %q", got)
	}
}

func TestRenderShimmerLogoStable(t *testing.T) {
	// Different frames restyle the same glyphs.
	a := renderShimmerLogo(0)
	b := renderShimmerLogo(3)
	if a == "" || b == "" {
		t.Fatal("shimmer logo rendered empty")
	}
	if !strings.Contains(a, "K") {
		t.Errorf("logo missing expected glyph: %q", a)
	}
}
