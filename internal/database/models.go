package database

import (
	"time"

	"gorm.io/datatypes"
)

// User 表示系统中的账号信息。
type User struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Username     string   `gorm:"uniqueIndex;size:64"`
	PasswordHash string   `gorm:"size:255"`
	Resumes      []Resume `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}

// Resume 是简历聚合的持久化行：关系字段放列，嵌套分区整体存 JSONB。
// 删除是真删除，因此刻意不带 gorm.DeletedAt。
type Resume struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Slug       string `gorm:"uniqueIndex;size:64"`
	OwnerID    uint   `gorm:"index"`
	Title      string `gorm:"size:255"`
	Visibility string `gorm:"size:16;index"`
	ViewCount  uint64 `gorm:"default:0"`

	Document datatypes.JSON `gorm:"type:jsonb"`

	// 从 personal_info 反规范化出来的检索列，随每次写入刷新。
	SearchName     string `gorm:"size:255"`
	SearchJobTitle string `gorm:"size:255"`

	// 异步导出的产物与状态。
	PdfObjectKey string `gorm:"size:512"`
	PdfStatus    string `gorm:"size:32"`

	LastModified time.Time `gorm:"index"`
}

// Asset 记录用户上传的对象（头像/照片等）。
type Asset struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    uint   `gorm:"index"`
	ObjectKey string `gorm:"size:512;uniqueIndex"`
}
