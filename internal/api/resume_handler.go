package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"resumeforge/internal/api/middleware"
	"resumeforge/internal/metrics"
	"resumeforge/internal/pdf"
	"resumeforge/internal/resume"
	"resumeforge/internal/storage"
	"resumeforge/internal/store"
	"resumeforge/internal/tasks"
)

// ResumeHandler 负责处理与简历相关的 API 请求。
type ResumeHandler struct {
	store       *store.Store
	asynqClient *asynq.Client
	storage     *storage.Client
	maxResumes  int
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(st *store.Store, asynqClient *asynq.Client, storageClient *storage.Client, maxResumes int) *ResumeHandler {
	return &ResumeHandler{
		store:       st,
		asynqClient: asynqClient,
		storage:     storageClient,
		maxResumes:  maxResumes,
	}
}

var errInvalidResumeID = errors.New("invalid resume id")

type createResumeRequest struct {
	Title      string `json:"title"`
	TemplateID string `json:"template_id"`
}

// writeResumeError 将领域错误映射到 HTTP 状态码。
func writeResumeError(c *gin.Context, err error) {
	var validationErr *resume.ValidationError
	var renderErr *pdf.RenderError
	switch {
	case errors.Is(err, errInvalidResumeID):
		BadRequest(c, "invalid resume id")
	case errors.As(err, &validationErr):
		BadRequest(c, validationErr.Error())
	case errors.Is(err, resume.ErrAccessDenied):
		Forbidden(c, "access denied")
	case errors.Is(err, resume.ErrNotFound):
		NotFound(c, "resume not found")
	case errors.As(err, &renderErr):
		Error(c, http.StatusUnprocessableEntity, renderErr.Error())
	default:
		Internal(c, "internal error")
	}
}

// CreateResume 创建一份新简历，超过限额则提示升级。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	var req createResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	log := middleware.LoggerFromContext(c)

	count, err := h.store.CountByOwner(ctx, userID)
	if err != nil {
		log.Error("count resumes failed", "error", err)
		Internal(c, "failed to count resumes")
		return
	}
	if h.maxResumes > 0 && count >= int64(h.maxResumes) {
		Forbidden(c, "resume limit reached")
		return
	}

	doc, err := resume.New(userID, req.Title, req.TemplateID, time.Now())
	if err != nil {
		writeResumeError(c, err)
		return
	}

	if err := h.store.Create(ctx, doc); err != nil {
		log.Error("create resume failed", "error", err)
		Internal(c, "failed to create resume")
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// ListResumes 分页列出用户的简历，支持按关键字过滤。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	search := strings.TrimSpace(c.Query("q"))

	items, total, err := h.store.ListByOwner(c.Request.Context(), userID, page, pageSize, search)
	if err != nil {
		middleware.LoggerFromContext(c).Error("list resumes failed", "error", err)
		Internal(c, "failed to list resumes")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetResume 返回指定简历。
// 匿名或非所有者访问公开简历时计入浏览次数。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	// 读取端点允许匿名访问，能否看到取决于可见性。
	userID, _ := userIDFromContext(c)

	doc, err := h.loadResume(c)
	if err != nil {
		writeResumeError(c, err)
		return
	}

	if err := resume.Authorize(doc, userID, false); err != nil {
		writeResumeError(c, err)
		return
	}

	if resume.CountsView(doc, userID) {
		if err := h.store.IncrementViewCount(c.Request.Context(), doc.ID); err != nil {
			// 计数失败不影响读取。
			middleware.LoggerFromContext(c).Warn("increment view count failed", "error", err)
		} else {
			doc.ViewCount++
		}
	}

	c.JSON(http.StatusOK, doc)
}

// UpdateResume 应用部分更新并返回完整的最新状态。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	var patch resume.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := resumeIDParam(c)
	if err != nil {
		writeResumeError(c, err)
		return
	}

	updated, err := h.store.UpdateByID(c.Request.Context(), id, userID, patch)
	if err != nil {
		writeResumeError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteResume 删除指定简历。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := resumeIDParam(c)
	if err != nil {
		writeResumeError(c, err)
		return
	}

	if err := h.store.DeleteByID(c.Request.Context(), id, userID); err != nil {
		writeResumeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DownloadResume 同步渲染 PDF 并以附件形式返回。
func (h *ResumeHandler) DownloadResume(c *gin.Context) {
	userID, _ := userIDFromContext(c)

	doc, err := h.loadResume(c)
	if err != nil {
		writeResumeError(c, err)
		return
	}
	if err := resume.Authorize(doc, userID, false); err != nil {
		writeResumeError(c, err)
		return
	}

	start := time.Now()
	pdfBytes, err := pdf.Render(doc)
	if err != nil {
		middleware.LoggerFromContext(c).Error("render pdf failed", "error", err)
		writeResumeError(c, err)
		return
	}
	metrics.ObserveRender(start)

	filename := downloadFilename(doc.Title)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// ExportResume 将 PDF 导出任务入队并立即返回 202。
func (h *ResumeHandler) ExportResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	doc, err := h.loadResume(c)
	if err != nil {
		writeResumeError(c, err)
		return
	}
	if err := resume.Authorize(doc, userID, true); err != nil {
		writeResumeError(c, err)
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewPDFExportTask(doc.ID, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5))
	if err != nil {
		Internal(c, "failed to enqueue pdf export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "PDF export request accepted",
		"task_id": info.ID,
	})
}

// GetDownloadLink 生成异步导出结果的预签名下载链接。
func (h *ResumeHandler) GetDownloadLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	doc, err := h.loadResume(c)
	if err != nil {
		writeResumeError(c, err)
		return
	}
	if err := resume.Authorize(doc, userID, true); err != nil {
		writeResumeError(c, err)
		return
	}

	objectKey, err := h.store.ExportObjectKey(c.Request.Context(), doc.ID)
	if err != nil {
		writeResumeError(c, err)
		return
	}
	if objectKey == "" {
		Conflict(c, "pdf not ready")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), objectKey, 5*time.Minute)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate download link failed", "error", err)
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

func (h *ResumeHandler) loadResume(c *gin.Context) (*resume.Resume, error) {
	id, err := resumeIDParam(c)
	if err != nil {
		return nil, err
	}
	return h.store.GetByID(c.Request.Context(), id)
}

func resumeIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errInvalidResumeID
	}
	return uint(id), nil
}

// downloadFilename 过滤标题中无法进入 Content-Disposition 的字符。
func downloadFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r == '"' || r == '\\' || r == '/' || r < 0x20:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		name = "resume"
	}
	return name + ".pdf"
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}
