// Package store 提供简历聚合的持久化访问。
//
// 一致性模型：写入是无条件覆盖（last-writer-wins）。两个会话并发编辑同一份
// 简历时不做冲突检测，后到的写入会静默覆盖先到的——这是单所有者文档编辑器
// 的刻意取舍，调用方需要知情。
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeforge/internal/database"
	"resumeforge/internal/resume"
)

// Error 表示持久化层故障，调用方可视作瞬态可重试。
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func storeErr(op string, err error) error { return &Error{Op: op, Err: err} }

// Store 是基于 GORM 的简历仓库。
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Summary 是列表页使用的轻量投影，不携带分区内容。
type Summary struct {
	ID           uint              `json:"id"`
	Slug         string            `json:"slug"`
	Title        string            `json:"title"`
	Visibility   resume.Visibility `json:"visibility"`
	ViewCount    uint64            `json:"view_count"`
	LastModified time.Time         `json:"last_modified"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Create 持久化新简历并回填 store 分配的 ID 与创建时间。
func (s *Store) Create(ctx context.Context, r *resume.Resume) error {
	model, err := toModel(r)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return storeErr("create resume", err)
	}
	r.ID = model.ID
	r.CreatedAt = model.CreatedAt
	return nil
}

// GetByID 读取一份简历；不存在返回 resume.ErrNotFound。
func (s *Store) GetByID(ctx context.Context, id uint) (*resume.Resume, error) {
	var model database.Resume
	if err := s.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, resume.ErrNotFound
		}
		return nil, storeErr("get resume", err)
	}
	return toAggregate(&model)
}

// UpdateByID 以所有者身份应用一次部分更新。
// 校验失败透传 ValidationError；非所有者返回 resume.ErrAccessDenied。
func (s *Store) UpdateByID(ctx context.Context, id, ownerID uint, patch resume.Patch) (*resume.Resume, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := resume.Authorize(current, ownerID, true); err != nil {
		return nil, err
	}

	updated, err := resume.ApplyPatch(*current, patch, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.Put(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Put 无条件覆盖聚合的可变部分（自动保存的落盘路径）。
// 不做版本比较：后写者赢。
func (s *Store) Put(ctx context.Context, r *resume.Resume) error {
	doc, err := json.Marshal(r.Document)
	if err != nil {
		return storeErr("encode document", err)
	}
	updates := map[string]any{
		"title":            r.Title,
		"visibility":       string(r.Visibility),
		"document":         datatypes.JSON(doc),
		"search_name":      r.PersonalInfo.FullName(),
		"search_job_title": r.PersonalInfo.JobTitle,
		"last_modified":    r.LastModified,
	}
	res := s.db.WithContext(ctx).Model(&database.Resume{}).Where("id = ?", r.ID).Updates(updates)
	if res.Error != nil {
		return storeErr("put resume", res.Error)
	}
	if res.RowsAffected == 0 {
		return resume.ErrNotFound
	}
	return nil
}

// DeleteByID 以所有者身份硬删除，无墓碑状态。
func (s *Store) DeleteByID(ctx context.Context, id, ownerID uint) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := resume.Authorize(current, ownerID, true); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&database.Resume{}, id).Error; err != nil {
		return storeErr("delete resume", err)
	}
	return nil
}

// ListByOwner 分页列出用户的简历，按 last_modified 倒序。
// search 对标题、姓名与职位做大小写不敏感的子串匹配。
func (s *Store) ListByOwner(ctx context.Context, ownerID uint, page, pageSize int, search string) ([]Summary, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	query := s.db.WithContext(ctx).Model(&database.Resume{}).Where("owner_id = ?", ownerID)
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(search_name) LIKE ? OR LOWER(search_job_title) LIKE ?",
			like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeErr("count resumes", err)
	}

	var models []database.Resume
	if err := query.
		Order("last_modified DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error; err != nil {
		return nil, 0, storeErr("list resumes", err)
	}

	items := make([]Summary, 0, len(models))
	for _, m := range models {
		items = append(items, Summary{
			ID:           m.ID,
			Slug:         m.Slug,
			Title:        m.Title,
			Visibility:   resume.Visibility(m.Visibility),
			ViewCount:    m.ViewCount,
			LastModified: m.LastModified,
			CreatedAt:    m.CreatedAt,
		})
	}
	return items, total, nil
}

// CountByOwner 返回用户持有的简历数量（限额检查用）。
func (s *Store) CountByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&database.Resume{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error
	if err != nil {
		return 0, storeErr("count resumes", err)
	}
	return count, nil
}

// IncrementViewCount 单调递增浏览计数。
// 与读取不在同一事务里（读后另行自增），并发下的少量偏差可接受。
func (s *Store) IncrementViewCount(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).
		Model(&database.Resume{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if res.Error != nil {
		return storeErr("increment view count", res.Error)
	}
	if res.RowsAffected == 0 {
		return resume.ErrNotFound
	}
	return nil
}

// SetExportResult 记录异步导出的对象键与状态。
func (s *Store) SetExportResult(ctx context.Context, id uint, objectKey, status string) error {
	res := s.db.WithContext(ctx).
		Model(&database.Resume{}).
		Where("id = ?", id).
		Updates(map[string]any{"pdf_object_key": objectKey, "pdf_status": status})
	if res.Error != nil {
		return storeErr("set export result", res.Error)
	}
	if res.RowsAffected == 0 {
		return resume.ErrNotFound
	}
	return nil
}

// ExportObjectKey 返回已生成 PDF 的对象键，未生成时为空串。
func (s *Store) ExportObjectKey(ctx context.Context, id uint) (string, error) {
	var model database.Resume
	if err := s.db.WithContext(ctx).Select("id", "pdf_object_key").First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", resume.ErrNotFound
		}
		return "", storeErr("get export object key", err)
	}
	return model.PdfObjectKey, nil
}

func toModel(r *resume.Resume) (*database.Resume, error) {
	doc, err := json.Marshal(r.Document)
	if err != nil {
		return nil, storeErr("encode document", err)
	}
	return &database.Resume{
		ID:             r.ID,
		Slug:           r.Slug,
		OwnerID:        r.OwnerID,
		Title:          r.Title,
		Visibility:     string(r.Visibility),
		ViewCount:      r.ViewCount,
		Document:       datatypes.JSON(doc),
		SearchName:     r.PersonalInfo.FullName(),
		SearchJobTitle: r.PersonalInfo.JobTitle,
		LastModified:   r.LastModified,
	}, nil
}

func toAggregate(m *database.Resume) (*resume.Resume, error) {
	var doc resume.Document
	if len(m.Document) > 0 {
		if err := json.Unmarshal(m.Document, &doc); err != nil {
			return nil, storeErr("decode document", err)
		}
	}
	return &resume.Resume{
		ID:           m.ID,
		Slug:         m.Slug,
		OwnerID:      m.OwnerID,
		Title:        m.Title,
		Visibility:   resume.Visibility(m.Visibility),
		ViewCount:    m.ViewCount,
		LastModified: m.LastModified,
		CreatedAt:    m.CreatedAt,
		Document:     doc,
	}, nil
}
