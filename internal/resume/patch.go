package resume

import (
	"time"

	"github.com/google/uuid"
)

// Patch 是一次浅合并的部分更新。
// 单例字段（personal_info/template/settings）逐字段合并，未出现的字段保持原值；
// 列表字段整体替换：编辑器总是回传完整的分区数组，nil 表示该分区未被触碰。
type Patch struct {
	Title      *string     `json:"title"`
	Visibility *Visibility `json:"visibility"`

	PersonalInfo *PersonalInfoPatch `json:"personal_info"`
	Template     *TemplatePatch     `json:"template"`
	Settings     *SettingsPatch     `json:"settings"`

	WorkExperience *[]WorkExperience `json:"work_experience"`
	Education      *[]Education      `json:"education"`
	Skills         *[]Skill          `json:"skills"`
	Projects       *[]Project        `json:"projects"`
	Certifications *[]Certification  `json:"certifications"`
	Languages      *[]Language       `json:"languages"`
	Hobbies        *[]string         `json:"hobbies"`
	References     *[]Reference      `json:"references"`
}

// PersonalInfoPatch 对单例个人信息做字段级合并。
type PersonalInfoPatch struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	City       *string `json:"city"`
	Country    *string `json:"country"`
	PostalCode *string `json:"postal_code"`
	JobTitle   *string `json:"job_title"`
	Summary    *string `json:"summary"`
	Website    *string `json:"website"`
	LinkedIn   *string `json:"linkedin"`
	GitHub     *string `json:"github"`
	Photo      *string `json:"photo"`
}

// TemplatePatch 对模板做字段级合并；调色板与字体同样按字段覆盖。
type TemplatePatch struct {
	Name     *string           `json:"name"`
	Category *TemplateCategory `json:"category"`
	Colors   *ColorPatch       `json:"colors"`
	Font     *FontPatch        `json:"font"`
}

type ColorPatch struct {
	Primary    *string `json:"primary"`
	Secondary  *string `json:"secondary"`
	Background *string `json:"background"`
	Text       *string `json:"text"`
}

type FontPatch struct {
	Heading *string `json:"heading"`
	Body    *string `json:"body"`
}

// SettingsPatch 对排版设置做字段级合并。
type SettingsPatch struct {
	Margin          *float64  `json:"margin"`
	FontSize        *float64  `json:"font_size"`
	LineHeight      *float64  `json:"line_height"`
	PageSize        *PageSize `json:"page_size"`
	ShowPageNumbers *bool     `json:"show_page_numbers"`
	ShowHeader      *bool     `json:"show_header"`
	ShowFooter      *bool     `json:"show_footer"`
}

// ApplyPatch 将 patch 合并进聚合并返回新值，原值不被修改。
// 不变量在此集中兑现：
//   - current=true 的工作/教育经历清空 end_date（以 current 为准）；
//   - 列表内子记录 id 缺失时补发 UUID，重复则拒绝；
//   - last_modified 严格递增。
func ApplyPatch(r Resume, p Patch, now time.Time) (Resume, error) {
	out := r

	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Visibility != nil {
		if !p.Visibility.Valid() {
			return r, &ValidationError{Field: "visibility", Reason: "unknown value " + string(*p.Visibility)}
		}
		out.Visibility = *p.Visibility
	}

	if p.PersonalInfo != nil {
		out.PersonalInfo = mergePersonalInfo(out.PersonalInfo, *p.PersonalInfo)
	}
	if p.Template != nil {
		out.Template = mergeTemplate(out.Template, *p.Template)
	}
	if p.Settings != nil {
		merged, err := mergeSettings(out.Settings, *p.Settings)
		if err != nil {
			return r, err
		}
		out.Settings = merged
	}

	if p.WorkExperience != nil {
		entries := append([]WorkExperience(nil), (*p.WorkExperience)...)
		ids := newIDSet("work_experience")
		for i := range entries {
			if entries[i].Current {
				entries[i].EndDate = ""
			}
			if err := ids.claim(&entries[i].ID); err != nil {
				return r, err
			}
		}
		out.WorkExperience = entries
	}
	if p.Education != nil {
		entries := append([]Education(nil), (*p.Education)...)
		ids := newIDSet("education")
		for i := range entries {
			if entries[i].Current {
				entries[i].EndDate = ""
			}
			if err := ids.claim(&entries[i].ID); err != nil {
				return r, err
			}
		}
		out.Education = entries
	}
	if p.Skills != nil {
		entries := append([]Skill(nil), (*p.Skills)...)
		ids := newIDSet("skills")
		for i := range entries {
			if err := ids.claim(&entries[i].ID); err != nil {
				return r, err
			}
		}
		out.Skills = entries
	}
	if p.Projects != nil {
		entries := append([]Project(nil), (*p.Projects)...)
		ids := newIDSet("projects")
		for i := range entries {
			if err := ids.claim(&entries[i].ID); err != nil {
				return r, err
			}
		}
		out.Projects = entries
	}
	if p.Certifications != nil {
		entries := append([]Certification(nil), (*p.Certifications)...)
		ids := newIDSet("certifications")
		for i := range entries {
			if err := ids.claim(&entries[i].ID); err != nil {
				return r, err
			}
		}
		out.Certifications = entries
	}
	if p.Languages != nil {
		entries := append([]Language(nil), (*p.Languages)...)
		ids := newIDSet("languages")
		for i := range entries {
			if err := ids.claim(&entries[i].ID); err != nil {
				return r, err
			}
		}
		out.Languages = entries
	}
	if p.Hobbies != nil {
		out.Hobbies = append([]string(nil), (*p.Hobbies)...)
	}
	if p.References != nil {
		entries := append([]Reference(nil), (*p.References)...)
		ids := newIDSet("references")
		for i := range entries {
			if err := ids.claim(&entries[i].ID); err != nil {
				return r, err
			}
		}
		out.References = entries
	}

	// 壁钟可能回拨或两次写入落在同一刻度，仍要保证严格递增。
	if !now.After(out.LastModified) {
		now = out.LastModified.Add(time.Millisecond)
	}
	out.LastModified = now

	return out, nil
}

func mergePersonalInfo(base PersonalInfo, p PersonalInfoPatch) PersonalInfo {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&base.FirstName, p.FirstName)
	set(&base.LastName, p.LastName)
	set(&base.Email, p.Email)
	set(&base.Phone, p.Phone)
	set(&base.Address, p.Address)
	set(&base.City, p.City)
	set(&base.Country, p.Country)
	set(&base.PostalCode, p.PostalCode)
	set(&base.JobTitle, p.JobTitle)
	set(&base.Summary, p.Summary)
	set(&base.Website, p.Website)
	set(&base.LinkedIn, p.LinkedIn)
	set(&base.GitHub, p.GitHub)
	set(&base.Photo, p.Photo)
	return base
}

func mergeTemplate(base Template, p TemplatePatch) Template {
	if p.Name != nil {
		base.Name = *p.Name
	}
	if p.Category != nil {
		base.Category = *p.Category
	}
	if p.Colors != nil {
		if p.Colors.Primary != nil {
			base.Colors.Primary = *p.Colors.Primary
		}
		if p.Colors.Secondary != nil {
			base.Colors.Secondary = *p.Colors.Secondary
		}
		if p.Colors.Background != nil {
			base.Colors.Background = *p.Colors.Background
		}
		if p.Colors.Text != nil {
			base.Colors.Text = *p.Colors.Text
		}
	}
	if p.Font != nil {
		if p.Font.Heading != nil {
			base.Font.Heading = *p.Font.Heading
		}
		if p.Font.Body != nil {
			base.Font.Body = *p.Font.Body
		}
	}
	return base
}

func mergeSettings(base Settings, p SettingsPatch) (Settings, error) {
	if p.Margin != nil {
		if *p.Margin < 0 {
			return base, &ValidationError{Field: "settings.margin", Reason: "must not be negative"}
		}
		base.Margin = *p.Margin
	}
	if p.FontSize != nil {
		if *p.FontSize <= 0 {
			return base, &ValidationError{Field: "settings.font_size", Reason: "must be positive"}
		}
		base.FontSize = *p.FontSize
	}
	if p.LineHeight != nil {
		if *p.LineHeight < 1.0 {
			return base, &ValidationError{Field: "settings.line_height", Reason: "must be at least 1.0"}
		}
		base.LineHeight = *p.LineHeight
	}
	if p.PageSize != nil {
		if !p.PageSize.Valid() {
			return base, &ValidationError{Field: "settings.page_size", Reason: "unknown value " + string(*p.PageSize)}
		}
		base.PageSize = *p.PageSize
	}
	if p.ShowPageNumbers != nil {
		base.ShowPageNumbers = *p.ShowPageNumbers
	}
	if p.ShowHeader != nil {
		base.ShowHeader = *p.ShowHeader
	}
	if p.ShowFooter != nil {
		base.ShowFooter = *p.ShowFooter
	}
	return base, nil
}

// idSet 保证一次列表替换内的子记录 id 局部唯一，缺失的 id 现场补发。
type idSet struct {
	field string
	seen  map[string]struct{}
}

func newIDSet(field string) *idSet {
	return &idSet{field: field, seen: make(map[string]struct{})}
}

func (s *idSet) claim(id *string) error {
	if *id == "" {
		*id = uuid.NewString()
	}
	if _, dup := s.seen[*id]; dup {
		return &ValidationError{Field: s.field, Reason: "duplicate entry id " + *id}
	}
	s.seen[*id] = struct{}{}
	return nil
}
