package resume

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultTitle 是未命名简历的标题。
const DefaultTitle = "Untitled Resume"

// DefaultTemplateID 是未指定模板时的回退选择。
const DefaultTemplateID = "modern"

// 内置模板注册表。调色板沿用产品早期定稿的十六进制值。
var builtinTemplates = map[string]Template{
	"modern": {
		Name:     "Modern",
		Category: CategoryModern,
		Colors: ColorPalette{
			Primary:    "#3B82F6",
			Secondary:  "#6B7280",
			Background: "#FFFFFF",
			Text:       "#1F2937",
		},
		Font: FontPair{Heading: "Inter", Body: "Inter"},
	},
	"professional": {
		Name:     "Professional",
		Category: CategoryProfessional,
		Colors: ColorPalette{
			Primary:    "#1E40AF",
			Secondary:  "#4B5563",
			Background: "#FFFFFF",
			Text:       "#111827",
		},
		Font: FontPair{Heading: "Calibri", Body: "Calibri"},
	},
	"creative": {
		Name:     "Creative",
		Category: CategoryCreative,
		Colors: ColorPalette{
			Primary:    "#DB2777",
			Secondary:  "#9333EA",
			Background: "#FFFFFF",
			Text:       "#1F2937",
		},
		Font: FontPair{Heading: "Poppins", Body: "Open Sans"},
	},
	"minimal": {
		Name:     "Minimal",
		Category: CategoryMinimal,
		Colors: ColorPalette{
			Primary:    "#111827",
			Secondary:  "#6B7280",
			Background: "#FFFFFF",
			Text:       "#111827",
		},
		Font: FontPair{Heading: "Helvetica", Body: "Helvetica"},
	},
	"academic": {
		Name:     "Academic",
		Category: CategoryAcademic,
		Colors: ColorPalette{
			Primary:    "#065F46",
			Secondary:  "#4B5563",
			Background: "#FFFFFF",
			Text:       "#1F2937",
		},
		Font: FontPair{Heading: "Georgia", Body: "Georgia"},
	},
}

// TemplateByID 返回内置模板。
func TemplateByID(id string) (Template, bool) {
	t, ok := builtinTemplates[id]
	return t, ok
}

// TemplateIDs 返回全部内置模板 ID（字典序，便于稳定展示）。
func TemplateIDs() []string {
	ids := make([]string, 0, len(builtinTemplates))
	for id := range builtinTemplates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultSettings 返回新简历的排版默认值。
func DefaultSettings() Settings {
	return Settings{
		Margin:          20,
		FontSize:        12,
		LineHeight:      1.5,
		PageSize:        PageA4,
		ShowPageNumbers: true,
		ShowHeader:      true,
		ShowFooter:      true,
	}
}

// NewSlug 生成创建时分配、之后不可变的短 slug。
func NewSlug() string {
	return "resume-" + uuid.NewString()[:8]
}

// New 构建一份新简历：单例字段全部取默认值，列表字段为空。
// templateID 为空时回退到默认模板；指定了未知模板则返回 ValidationError。
func New(ownerID uint, title, templateID string, now time.Time) (*Resume, error) {
	if title == "" {
		title = DefaultTitle
	}
	if templateID == "" {
		templateID = DefaultTemplateID
	}
	tpl, ok := TemplateByID(templateID)
	if !ok {
		return nil, &ValidationError{Field: "template", Reason: "unknown template " + templateID}
	}

	return &Resume{
		Slug:         NewSlug(),
		OwnerID:      ownerID,
		Title:        title,
		Visibility:   VisibilityPrivate,
		ViewCount:    0,
		LastModified: now,
		Document: Document{
			PersonalInfo:   PersonalInfo{},
			WorkExperience: []WorkExperience{},
			Education:      []Education{},
			Skills:         []Skill{},
			Projects:       []Project{},
			Certifications: []Certification{},
			Languages:      []Language{},
			Hobbies:        []string{},
			References:     []Reference{},
			Template:       tpl,
			Settings:       DefaultSettings(),
		},
	}, nil
}
