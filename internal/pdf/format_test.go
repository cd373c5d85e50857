package pdf

import (
	"testing"

	"resumeforge/internal/resume"
)

func TestMonthYear(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2022-03-01", "Mar 2022", false},
		{"2020-01-01", "Jan 2020", false},
		{"2019-11-02T15:04:05Z", "Nov 2019", false},
		{"2021-07", "Jul 2021", false},
		{"", "", false},
		{"yesterday", "", true},
	}
	for _, tc := range cases {
		got, err := monthYear(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("monthYear(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("monthYear(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("monthYear(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDateRange(t *testing.T) {
	got, err := dateRange("2020-01-01", "", true)
	if err != nil {
		t.Fatalf("date range: %v", err)
	}
	if got != "Jan 2020 – Present" {
		t.Fatalf("got %q, want %q", got, "Jan 2020 – Present")
	}

	// current=false 且无结束日期：end 渲染为空串，而非 "Present"。
	got, err = dateRange("2020-01-01", "", false)
	if err != nil {
		t.Fatalf("date range: %v", err)
	}
	if got != "Jan 2020 – " {
		t.Fatalf("got %q, want empty end date", got)
	}
}

func TestProficiencyLabels(t *testing.T) {
	if got := skillLevelLabel(resume.SkillExpert); got != "Expert" {
		t.Fatalf("skill label = %q", got)
	}
	if got := skillLevelLabel(resume.SkillLevel("wizard")); got != "Wizard" {
		t.Fatalf("unknown skill level must fall back to the raw value, got %q", got)
	}
	if got := languageLevelLabel(resume.ProficiencyConversational); got != "Conversational" {
		t.Fatalf("language label = %q", got)
	}
	if got := languageLevelLabel(resume.LanguageProficiency("fluent-ish")); got != "Fluent-ish" {
		t.Fatalf("unknown proficiency must fall back to the raw value, got %q", got)
	}
}

func TestParseHexColor(t *testing.T) {
	if got := parseHexColor("#3B82F6", rgb{}); got != (rgb{0x3B, 0x82, 0xF6}) {
		t.Fatalf("parse = %+v", got)
	}
	fallback := rgb{1, 2, 3}
	if got := parseHexColor("teal", fallback); got != fallback {
		t.Fatalf("malformed color must fall back, got %+v", got)
	}
}

func TestCoreFont(t *testing.T) {
	cases := map[string]string{
		"Georgia":        "Times",
		"Times New":      "Times",
		"JetBrains Mono": "Courier",
		"Inter":          "Helvetica",
		"":               "Helvetica",
	}
	for in, want := range cases {
		if got := coreFont(in); got != want {
			t.Fatalf("coreFont(%q) = %q, want %q", in, got, want)
		}
	}
}
