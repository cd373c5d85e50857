package resume

import (
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func newTestResume(t *testing.T) Resume {
	t.Helper()
	r, err := New(1, "QA Test", "", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("new resume: %v", err)
	}
	return *r
}

func TestNew_Defaults(t *testing.T) {
	r := newTestResume(t)

	if r.Visibility != VisibilityPrivate {
		t.Fatalf("visibility = %q, want private", r.Visibility)
	}
	if r.ViewCount != 0 {
		t.Fatalf("view count = %d, want 0", r.ViewCount)
	}
	if r.Slug == "" {
		t.Fatal("slug not assigned")
	}
	if r.Template.Name != "Modern" {
		t.Fatalf("template = %q, want Modern fallback", r.Template.Name)
	}
	if r.Settings.PageSize != PageA4 || r.Settings.Margin != 20 {
		t.Fatalf("unexpected default settings: %+v", r.Settings)
	}
	if len(r.WorkExperience) != 0 || len(r.Skills) != 0 {
		t.Fatal("sections must start empty")
	}
}

func TestNew_UnknownTemplate(t *testing.T) {
	if _, err := New(1, "", "swanky", time.Now()); !IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if _, err := New(1, "", "", time.Now()); err != nil {
		t.Fatalf("empty template id must fall back, got %v", err)
	}
}

func TestApplyPatch_CurrentClearsEndDate(t *testing.T) {
	r := newTestResume(t)

	patch := Patch{WorkExperience: &[]WorkExperience{{
		JobTitle:  "Engineer",
		Employer:  "Acme",
		StartDate: "2020-01-01",
		EndDate:   "2023-06-01",
		Current:   true,
	}}}

	out, err := ApplyPatch(r, patch, time.Now())
	if err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	exp := out.WorkExperience[0]
	if exp.EndDate != "" {
		t.Fatalf("end date = %q, want cleared when current", exp.EndDate)
	}
	if !exp.Current {
		t.Fatal("current flag lost")
	}
	if exp.ID == "" {
		t.Fatal("entry id not assigned")
	}
}

func TestApplyPatch_ListReplaceIsWholesale(t *testing.T) {
	r := newTestResume(t)

	first, err := ApplyPatch(r, Patch{Skills: &[]Skill{
		{Name: "Go", Level: SkillExpert},
		{Name: "SQL", Level: SkillAdvanced},
	}}, time.Now())
	if err != nil {
		t.Fatalf("seed skills: %v", err)
	}
	if len(first.Skills) != 2 {
		t.Fatalf("skills = %d, want 2", len(first.Skills))
	}

	// 空数组清空列表：整体替换而非合并。
	second, err := ApplyPatch(first, Patch{Skills: &[]Skill{}}, time.Now())
	if err != nil {
		t.Fatalf("empty skills: %v", err)
	}
	if len(second.Skills) != 0 {
		t.Fatalf("skills = %d after empty patch, want 0", len(second.Skills))
	}
	// 未触碰的列表保持原值。
	if len(second.WorkExperience) != len(first.WorkExperience) {
		t.Fatal("untouched list changed")
	}
}

func TestApplyPatch_OrderPreserved(t *testing.T) {
	r := newTestResume(t)

	entries := []Education{
		{Degree: "PhD", School: "C"},
		{Degree: "MSc", School: "B"},
		{Degree: "BSc", School: "A"},
	}
	out, err := ApplyPatch(r, Patch{Education: &entries}, time.Now())
	if err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	for i, want := range []string{"PhD", "MSc", "BSc"} {
		if out.Education[i].Degree != want {
			t.Fatalf("education[%d] = %q, want %q (array order must survive)", i, out.Education[i].Degree, want)
		}
	}
}

func TestApplyPatch_DuplicateEntryID(t *testing.T) {
	r := newTestResume(t)

	_, err := ApplyPatch(r, Patch{Languages: &[]Language{
		{ID: "l1", Name: "English", Proficiency: ProficiencyNative},
		{ID: "l1", Name: "French", Proficiency: ProficiencyBasic},
	}}, time.Now())
	if !IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError on duplicate id", err)
	}
}

func TestApplyPatch_LastModifiedStrictlyIncreases(t *testing.T) {
	r := newTestResume(t)

	now := r.LastModified // 与上次写入同一刻度
	out, err := ApplyPatch(r, Patch{Title: strPtr("v2")}, now)
	if err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	if !out.LastModified.After(r.LastModified) {
		t.Fatalf("last modified %v not after %v", out.LastModified, r.LastModified)
	}

	again, err := ApplyPatch(out, Patch{Title: strPtr("v3")}, time.Now())
	if err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	if !again.LastModified.After(out.LastModified) {
		t.Fatal("last modified must strictly increase per write")
	}
}

func TestApplyPatch_SingletonFieldMerge(t *testing.T) {
	r := newTestResume(t)
	r.PersonalInfo.FirstName = "Ada"
	r.PersonalInfo.Email = "ada@example.com"

	out, err := ApplyPatch(r, Patch{PersonalInfo: &PersonalInfoPatch{
		LastName: strPtr("Lovelace"),
		JobTitle: strPtr("Engineer"),
	}}, time.Now())
	if err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	pi := out.PersonalInfo
	if pi.FirstName != "Ada" || pi.Email != "ada@example.com" {
		t.Fatalf("unpatched fields lost: %+v", pi)
	}
	if pi.LastName != "Lovelace" || pi.JobTitle != "Engineer" {
		t.Fatalf("patched fields not applied: %+v", pi)
	}
}

func TestApplyPatch_TemplateChangeKeepsSections(t *testing.T) {
	r := newTestResume(t)
	seeded, err := ApplyPatch(r, Patch{Hobbies: &[]string{"chess"}}, time.Now())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := ApplyPatch(seeded, Patch{Template: &TemplatePatch{
		Colors: &ColorPatch{Primary: strPtr("#FF0000")},
	}}, time.Now())
	if err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	if out.Template.Colors.Primary != "#FF0000" {
		t.Fatal("primary color not applied")
	}
	if out.Template.Colors.Text != seeded.Template.Colors.Text {
		t.Fatal("unpatched palette entry changed")
	}
	if len(out.Hobbies) != 1 {
		t.Fatal("template change must not touch section data")
	}
}

func TestApplyPatch_InvalidSettings(t *testing.T) {
	r := newTestResume(t)
	bad := 0.5
	if _, err := ApplyPatch(r, Patch{Settings: &SettingsPatch{LineHeight: &bad}}, time.Now()); !IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError for line height < 1", err)
	}
	size := PageSize("Tabloid")
	if _, err := ApplyPatch(r, Patch{Settings: &SettingsPatch{PageSize: &size}}, time.Now()); !IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError for unknown page size", err)
	}
}

func TestAuthorize(t *testing.T) {
	r := newTestResume(t)

	if err := Authorize(&r, r.OwnerID, true); err != nil {
		t.Fatalf("owner write denied: %v", err)
	}
	if err := Authorize(&r, 99, true); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("non-owner write: err = %v, want ErrAccessDenied", err)
	}
	if err := Authorize(&r, 99, false); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("non-owner private read: err = %v, want ErrAccessDenied", err)
	}

	r.Visibility = VisibilityPublic
	if err := Authorize(&r, 99, false); err != nil {
		t.Fatalf("public read denied: %v", err)
	}
	if !CountsView(&r, 99) {
		t.Fatal("non-owner public read must count a view")
	}
	if CountsView(&r, r.OwnerID) {
		t.Fatal("owner read must not count a view")
	}

	r.Visibility = VisibilityUnlisted
	if err := Authorize(&r, 99, false); err != nil {
		t.Fatalf("unlisted read denied: %v", err)
	}
	if CountsView(&r, 99) {
		t.Fatal("unlisted read must not count a view")
	}
}
