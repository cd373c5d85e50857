package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumeforge/internal/errcode"
	"resumeforge/internal/metrics"
	"resumeforge/internal/pdf"
	"resumeforge/internal/resume"
	"resumeforge/internal/storage"
	"resumeforge/internal/store"
	"resumeforge/internal/tasks"
)

// PDFExportHandler 负责消费 PDF 导出任务。
type PDFExportHandler struct {
	store       *store.Store
	storage     *storage.Client
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewPDFExportHandler 创建任务处理器。
func NewPDFExportHandler(
	st *store.Store,
	storageClient *storage.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
) *PDFExportHandler {
	return &PDFExportHandler{
		store:       st,
		storage:     storageClient,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
//
// 渲染失败（简历数据非法）不重试：重试不会让数据变合法。
// 上传或落库失败按 asynq 默认策略重试，最后一次失败时通知前端。
func (h *PDFExportHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.PDFExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("resume_id", int(payload.ResumeID)),
	)
	log.Info("starting pdf export task")

	doc, err := h.store.GetByID(ctx, payload.ResumeID)
	if err != nil {
		if errors.Is(err, resume.ErrNotFound) {
			log.Warn("resume not found, skipping task")
			return nil
		}
		log.Error("load resume failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("user_id", uint64(doc.OwnerID)))

	defer func() {
		if retErr == nil {
			return
		}
		if !errors.Is(retErr, asynq.SkipRetry) && !isFinalAsynqAttempt(ctx) {
			return
		}

		notify := PDFExportNotifyMessage{
			Status:        "error",
			ResumeID:      doc.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		var renderErr *pdf.RenderError
		if errors.As(retErr, &renderErr) {
			notify.ErrorCode = errcode.RenderFailed
		}
		if err := h.publishExportNotify(ctx, doc.OwnerID, notify); err != nil {
			log.Error("publish pdf error notification failed", slog.Any("error", err))
		}
	}()

	start := time.Now()
	pdfBytes, err := pdf.Render(doc)
	if err != nil {
		log.Error("render pdf failed", slog.Any("error", err))
		// 数据问题，重试无意义。
		return fmt.Errorf("render resume %d: %w", doc.ID, errors.Join(err, asynq.SkipRetry))
	}
	metrics.ObserveRender(start)

	objectName := fmt.Sprintf("generated-resumes/%d/%s.pdf", doc.OwnerID, uuid.NewString())
	pdfReader := bytes.NewReader(pdfBytes)
	if _, err := h.storage.UploadFile(ctx, objectName, pdfReader, int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	if err := h.store.SetExportResult(ctx, doc.ID, objectName, "completed"); err != nil {
		log.Error("record export result failed", slog.Any("error", err))
		return err
	}

	notify := PDFExportNotifyMessage{
		Status:        "completed",
		ResumeID:      doc.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := h.publishExportNotify(ctx, doc.OwnerID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("pdf export task completed",
		slog.String("object_key", objectName),
		slog.Int("size_bytes", len(pdfBytes)),
	)
	return nil
}

func (h *PDFExportHandler) publishExportNotify(ctx context.Context, userID uint, notify PDFExportNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("user_notify:%d", userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
