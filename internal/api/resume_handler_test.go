package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resumeforge/internal/database"
	"resumeforge/internal/resume"
	"resumeforge/internal/store"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

// testAuth 从测试头读取用户身份，替代 JWT 中间件。
func testAuth(c *gin.Context) {
	if v := c.GetHeader("X-Test-User"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err == nil {
			c.Set("userID", uint(id))
		}
	}
	c.Next()
}

func newTestRouter(t *testing.T, maxResumes int) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	st := store.New(db)
	h := NewResumeHandler(st, nil, nil, maxResumes)

	router := gin.New()
	router.Use(testAuth)
	router.POST("/v1/resumes", h.CreateResume)
	router.GET("/v1/resumes", h.ListResumes)
	router.GET("/v1/resumes/:id", h.GetResume)
	router.PATCH("/v1/resumes/:id", h.UpdateResume)
	router.DELETE("/v1/resumes/:id", h.DeleteResume)
	router.GET("/v1/resumes/:id/download", h.DownloadResume)
	return router, st
}

func doJSON(t *testing.T, router *gin.Engine, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(data)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createTestResume(t *testing.T, router *gin.Engine, userID, title string) resume.Resume {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/v1/resumes", userID, gin.H{"title": title})
	if w.Code != http.StatusCreated {
		t.Fatalf("create resume: status %d body %s", w.Code, w.Body.String())
	}
	var doc resume.Resume
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return doc
}

func TestCreateResumeDefaults(t *testing.T) {
	router, _ := newTestRouter(t, 10)

	w := doJSON(t, router, http.MethodPost, "/v1/resumes", "1", gin.H{})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	var doc resume.Resume
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Title != "Untitled Resume" {
		t.Fatalf("expected default title, got %q", doc.Title)
	}
	if doc.Visibility != resume.VisibilityPrivate {
		t.Fatalf("expected private default, got %q", doc.Visibility)
	}
}

func TestCreateResumeUnknownTemplate(t *testing.T) {
	router, _ := newTestRouter(t, 10)

	w := doJSON(t, router, http.MethodPost, "/v1/resumes", "1", gin.H{"template_id": "nope"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body %s", w.Code, w.Body.String())
	}
}

func TestCreateResumeLimit(t *testing.T) {
	router, _ := newTestRouter(t, 1)

	createTestResume(t, router, "1", "First")
	w := doJSON(t, router, http.MethodPost, "/v1/resumes", "1", gin.H{"title": "Second"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on limit, got %d", w.Code)
	}
}

func TestCreateResumeRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t, 10)

	w := doJSON(t, router, http.MethodPost, "/v1/resumes", "", gin.H{"title": "X"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestGetResumeVisibility(t *testing.T) {
	router, _ := newTestRouter(t, 10)
	doc := createTestResume(t, router, "1", "Private CV")
	idPath := "/v1/resumes/" + strconv.FormatUint(uint64(doc.ID), 10)

	// 所有者可读自己的 private。
	if w := doJSON(t, router, http.MethodGet, idPath, "1", nil); w.Code != http.StatusOK {
		t.Fatalf("owner read: expected 200, got %d", w.Code)
	}
	// 匿名读 private 被拒。
	if w := doJSON(t, router, http.MethodGet, idPath, "", nil); w.Code != http.StatusForbidden {
		t.Fatalf("anonymous read private: expected 403, got %d", w.Code)
	}
	// 其他用户读 private 被拒。
	if w := doJSON(t, router, http.MethodGet, idPath, "2", nil); w.Code != http.StatusForbidden {
		t.Fatalf("stranger read private: expected 403, got %d", w.Code)
	}
}

func TestPublicReadIncrementsViewCount(t *testing.T) {
	router, _ := newTestRouter(t, 10)
	doc := createTestResume(t, router, "1", "Public CV")
	idPath := "/v1/resumes/" + strconv.FormatUint(uint64(doc.ID), 10)

	public := resume.VisibilityPublic
	if w := doJSON(t, router, http.MethodPatch, idPath, "1", resume.Patch{Visibility: &public}); w.Code != http.StatusOK {
		t.Fatalf("publish: expected 200, got %d body %s", w.Code, w.Body.String())
	}

	// 匿名访客 + 其他用户，各计一次。
	for _, viewer := range []string{"", "2"} {
		if w := doJSON(t, router, http.MethodGet, idPath, viewer, nil); w.Code != http.StatusOK {
			t.Fatalf("public read: expected 200, got %d", w.Code)
		}
	}
	// 所有者自读不计数。
	w := doJSON(t, router, http.MethodGet, idPath, "1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("owner read: expected 200, got %d", w.Code)
	}
	var got resume.Resume
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ViewCount != 2 {
		t.Fatalf("expected 2 views, got %d", got.ViewCount)
	}
}

func TestUpdateResumeValidation(t *testing.T) {
	router, _ := newTestRouter(t, 10)
	doc := createTestResume(t, router, "1", "CV")
	idPath := "/v1/resumes/" + strconv.FormatUint(uint64(doc.ID), 10)

	w := doJSON(t, router, http.MethodPatch, idPath, "1", gin.H{"visibility": "everyone"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body %s", w.Code, w.Body.String())
	}
}

func TestUpdateResumeNonOwnerForbidden(t *testing.T) {
	router, _ := newTestRouter(t, 10)
	doc := createTestResume(t, router, "1", "CV")
	idPath := "/v1/resumes/" + strconv.FormatUint(uint64(doc.ID), 10)

	w := doJSON(t, router, http.MethodPatch, idPath, "2", gin.H{"title": "Hijacked"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestUpdateResumeAppliesPatch(t *testing.T) {
	router, _ := newTestRouter(t, 10)
	doc := createTestResume(t, router, "1", "CV")
	idPath := "/v1/resumes/" + strconv.FormatUint(uint64(doc.ID), 10)

	patch := gin.H{
		"work_experience": []gin.H{
			{"job_title": "Engineer", "employer": "Acme", "start_date": "2020-01-15", "current": true, "end_date": "2024-01-01"},
		},
	}
	w := doJSON(t, router, http.MethodPatch, idPath, "1", patch)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", w.Code, w.Body.String())
	}
	var got resume.Resume
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.WorkExperience) != 1 {
		t.Fatalf("expected 1 work entry, got %d", len(got.WorkExperience))
	}
	entry := got.WorkExperience[0]
	if entry.ID == "" {
		t.Fatal("expected server-assigned entry id")
	}
	if entry.EndDate != "" {
		t.Fatalf("current entry should have end_date cleared, got %q", entry.EndDate)
	}
	if !got.LastModified.After(doc.LastModified) {
		t.Fatal("last_modified should advance on update")
	}
}

func TestDeleteResume(t *testing.T) {
	router, _ := newTestRouter(t, 10)
	doc := createTestResume(t, router, "1", "CV")
	idPath := "/v1/resumes/" + strconv.FormatUint(uint64(doc.ID), 10)

	if w := doJSON(t, router, http.MethodDelete, idPath, "2", nil); w.Code != http.StatusForbidden {
		t.Fatalf("stranger delete: expected 403, got %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodDelete, idPath, "1", nil); w.Code != http.StatusNoContent {
		t.Fatalf("owner delete: expected 204, got %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodGet, idPath, "1", nil); w.Code != http.StatusNotFound {
		t.Fatalf("read after delete: expected 404, got %d", w.Code)
	}
}

func TestListResumesPagination(t *testing.T) {
	router, _ := newTestRouter(t, 10)
	for i := 0; i < 3; i++ {
		createTestResume(t, router, "1", "CV "+strconv.Itoa(i))
	}
	createTestResume(t, router, "2", "Other")

	w := doJSON(t, router, http.MethodGet, "/v1/resumes?page=1&page_size=2", "1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Items []store.Summary `json:"items"`
		Total int64           `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("expected total 3, got %d", resp.Total)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Items))
	}
}

func TestDownloadResumeReturnsPDF(t *testing.T) {
	router, _ := newTestRouter(t, 10)
	doc := createTestResume(t, router, "1", "CV")
	idPath := "/v1/resumes/" + strconv.FormatUint(uint64(doc.ID), 10) + "/download"

	w := doJSON(t, router, http.MethodGet, idPath, "1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")) {
		t.Fatal("body is not a pdf")
	}
	if cd := w.Header().Get("Content-Disposition"); cd == "" {
		t.Fatal("missing content disposition")
	}
}

func TestDownloadResumeRenderFailure(t *testing.T) {
	router, st := newTestRouter(t, 10)
	doc := createTestResume(t, router, "1", "CV")

	full, err := st.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	full.WorkExperience = []resume.WorkExperience{
		{ID: "w1", JobTitle: "X", Employer: "Y", StartDate: "not-a-date"},
	}
	full.LastModified = full.LastModified.Add(time.Second)
	if err := st.Put(context.Background(), full); err != nil {
		t.Fatalf("put: %v", err)
	}

	idPath := "/v1/resumes/" + strconv.FormatUint(uint64(doc.ID), 10) + "/download"
	w := doJSON(t, router, http.MethodGet, idPath, "1", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body %s", w.Code, w.Body.String())
	}
}

func TestDownloadFilename(t *testing.T) {
	cases := map[string]string{
		"Backend CV":      "Backend CV.pdf",
		`He said "hi"/..`: "He said _hi__...pdf",
		"":                "resume.pdf",
	}
	for in, want := range cases {
		if got := downloadFilename(in); got != want {
			t.Errorf("downloadFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
