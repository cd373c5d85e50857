package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resumeforge/internal/database"
	"resumeforge/internal/resume"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.Resume{}, &database.Asset{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return New(db)
}

func mustCreate(t *testing.T, s *Store, ownerID uint, title string) *resume.Resume {
	t.Helper()
	r, err := resume.New(ownerID, title, "", time.Now())
	if err != nil {
		t.Fatalf("new resume: %v", err)
	}
	if err := s.Create(context.Background(), r); err != nil {
		t.Fatalf("create resume: %v", err)
	}
	return r
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := mustCreate(t, s, 1, "Backend CV")
	if created.ID == 0 {
		t.Fatal("expected store-assigned id")
	}

	got, err := s.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Backend CV" || got.OwnerID != 1 {
		t.Fatalf("unexpected resume: %+v", got)
	}
	if got.Template.Name != "Modern" {
		t.Fatalf("expected default template, got %q", got.Template.Name)
	}
	if got.WorkExperience == nil || len(got.WorkExperience) != 0 {
		t.Fatalf("expected empty section slice, got %#v", got.WorkExperience)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetByID(context.Background(), 999); !errors.Is(err, resume.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateReplacesListsWholesale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := mustCreate(t, s, 1, "CV")

	two := []resume.Skill{
		{Name: "Go", Level: resume.SkillExpert},
		{Name: "SQL", Level: resume.SkillAdvanced},
	}
	updated, err := s.UpdateByID(ctx, r.ID, 1, resume.Patch{Skills: &two})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Skills) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(updated.Skills))
	}

	empty := []resume.Skill{}
	updated, err = s.UpdateByID(ctx, r.ID, 1, resume.Patch{Skills: &empty})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Skills) != 0 {
		t.Fatalf("expected empty skills after replace, got %d", len(updated.Skills))
	}

	got, err := s.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Skills) != 0 {
		t.Fatalf("persisted skills should be empty, got %d", len(got.Skills))
	}
}

func TestUpdateByNonOwnerDenied(t *testing.T) {
	s := newTestStore(t)
	r := mustCreate(t, s, 1, "CV")

	title := "Hijacked"
	_, err := s.UpdateByID(context.Background(), r.ID, 2, resume.Patch{Title: &title})
	if !errors.Is(err, resume.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestUpdateAdvancesLastModified(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := mustCreate(t, s, 1, "CV")

	title := "CV v2"
	updated, err := s.UpdateByID(ctx, r.ID, 1, resume.Patch{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.LastModified.After(r.LastModified) {
		t.Fatalf("last_modified did not advance: %v -> %v", r.LastModified, updated.LastModified)
	}
}

func TestPutOverwritesUnconditionally(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := mustCreate(t, s, 1, "CV")

	a := *r
	a.Title = "Session A"
	a.LastModified = r.LastModified.Add(time.Second)
	b := *r
	b.Title = "Session B"
	b.LastModified = r.LastModified.Add(2 * time.Second)

	if err := s.Put(ctx, &a); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := s.Put(ctx, &b); err != nil {
		t.Fatalf("put b: %v", err)
	}

	got, err := s.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Session B" {
		t.Fatalf("last writer should win, got %q", got.Title)
	}
}

func TestPutMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	r, err := resume.New(1, "Ghost", "", time.Now())
	if err != nil {
		t.Fatalf("new resume: %v", err)
	}
	r.ID = 424242
	if err := s.Put(context.Background(), r); !errors.Is(err, resume.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIsHardAndOwnerOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := mustCreate(t, s, 1, "CV")

	if err := s.DeleteByID(ctx, r.ID, 2); !errors.Is(err, resume.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if err := s.DeleteByID(ctx, r.ID, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetByID(ctx, r.ID); !errors.Is(err, resume.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListByOwnerPaginationAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		r := mustCreate(t, s, 1, "CV")
		r.LastModified = base.Add(time.Duration(i) * time.Minute)
		if err := s.Put(ctx, r); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	mustCreate(t, s, 2, "Other owner")

	items, total, err := s.ListByOwner(ctx, 1, 1, 2, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(items) != 2 {
		t.Fatalf("expected page of 2, got %d", len(items))
	}
	if items[0].LastModified.Before(items[1].LastModified) {
		t.Fatal("expected last_modified descending")
	}

	items, _, err = s.ListByOwner(ctx, 1, 2, 2, "")
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item on page 2, got %d", len(items))
	}
}

func TestListSearchMatchesNameAndTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := mustCreate(t, s, 1, "Platform Engineer CV")
	r.PersonalInfo.FirstName = "Grace"
	r.PersonalInfo.LastName = "Hopper"
	r.PersonalInfo.JobTitle = "Rear Admiral"
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("put: %v", err)
	}
	mustCreate(t, s, 1, "Bakery CV")

	for _, q := range []string{"platform", "GRACE", "admiral"} {
		items, total, err := s.ListByOwner(ctx, 1, 1, 10, q)
		if err != nil {
			t.Fatalf("search %q: %v", q, err)
		}
		if total != 1 || len(items) != 1 {
			t.Fatalf("search %q: expected exactly 1 hit, got %d", q, total)
		}
		if items[0].ID != r.ID {
			t.Fatalf("search %q matched wrong resume", q)
		}
	}
}

func TestIncrementViewCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := mustCreate(t, s, 1, "CV")

	for i := 0; i < 3; i++ {
		if err := s.IncrementViewCount(ctx, r.ID); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	got, err := s.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ViewCount != 3 {
		t.Fatalf("expected view_count 3, got %d", got.ViewCount)
	}
}

func TestCountByOwnerAndExportResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := mustCreate(t, s, 1, "CV")
	mustCreate(t, s, 1, "CV 2")

	count, err := s.CountByOwner(ctx, 1)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}

	if err := s.SetExportResult(ctx, r.ID, "generated-resumes/1/abc.pdf", "completed"); err != nil {
		t.Fatalf("set export result: %v", err)
	}
	key, err := s.ExportObjectKey(ctx, r.ID)
	if err != nil {
		t.Fatalf("export key: %v", err)
	}
	if key != "generated-resumes/1/abc.pdf" {
		t.Fatalf("unexpected key %q", key)
	}
}
