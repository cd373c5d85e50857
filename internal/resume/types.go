package resume

import "time"

// Visibility 控制简历的读取范围。
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
)

// Valid 判断可见性取值是否合法。
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityPublic, VisibilityUnlisted:
		return true
	}
	return false
}

// TemplateCategory 表示模板的风格分类。
type TemplateCategory string

const (
	CategoryProfessional TemplateCategory = "professional"
	CategoryCreative     TemplateCategory = "creative"
	CategoryModern       TemplateCategory = "modern"
	CategoryMinimal      TemplateCategory = "minimal"
	CategoryAcademic     TemplateCategory = "academic"
)

// SkillLevel 表示技能熟练度（序数：beginner < intermediate < advanced < expert）。
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillExpert       SkillLevel = "expert"
)

// LanguageProficiency 表示语言熟练度。
type LanguageProficiency string

const (
	ProficiencyBasic          LanguageProficiency = "basic"
	ProficiencyConversational LanguageProficiency = "conversational"
	ProficiencyProfessional   LanguageProficiency = "professional"
	ProficiencyNative         LanguageProficiency = "native"
)

// PageSize 表示导出页面尺寸。
type PageSize string

const (
	PageA4     PageSize = "A4"
	PageLetter PageSize = "Letter"
	PageLegal  PageSize = "Legal"
)

// Valid 判断页面尺寸取值是否合法。
func (p PageSize) Valid() bool {
	switch p {
	case PageA4, PageLetter, PageLegal:
		return true
	}
	return false
}

// Resume 是简历聚合根。Document 部分以 JSONB 形式持久化。
type Resume struct {
	ID           uint       `json:"id"`
	Slug         string     `json:"slug"`
	OwnerID      uint       `json:"owner_id"`
	Title        string     `json:"title"`
	Visibility   Visibility `json:"visibility"`
	ViewCount    uint64     `json:"view_count"`
	LastModified time.Time  `json:"last_modified"`
	CreatedAt    time.Time  `json:"created_at"`
	Document
}

// Document 包含简历的全部结构化内容。
type Document struct {
	PersonalInfo   PersonalInfo     `json:"personal_info"`
	WorkExperience []WorkExperience `json:"work_experience"`
	Education      []Education      `json:"education"`
	Skills         []Skill          `json:"skills"`
	Projects       []Project        `json:"projects"`
	Certifications []Certification  `json:"certifications"`
	Languages      []Language       `json:"languages"`
	Hobbies        []string         `json:"hobbies"`
	References     []Reference      `json:"references"`
	Template       Template         `json:"template"`
	Settings       Settings         `json:"settings"`
}

// PersonalInfo 是每份简历唯一的个人信息单例。
type PersonalInfo struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	JobTitle   string `json:"job_title"`
	Summary    string `json:"summary"`
	Website    string `json:"website,omitempty"`
	LinkedIn   string `json:"linkedin,omitempty"`
	GitHub     string `json:"github,omitempty"`
	Photo      string `json:"photo,omitempty"`
}

// 日期字段统一存为 "2006-01-02" 字符串，空串表示未填写。

type WorkExperience struct {
	ID           string   `json:"id"`
	JobTitle     string   `json:"job_title"`
	Employer     string   `json:"employer"`
	City         string   `json:"city"`
	Country      string   `json:"country"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Current      bool     `json:"current"`
	Description  string   `json:"description"`
	Achievements []string `json:"achievements"`
}

type Education struct {
	ID          string `json:"id"`
	Degree      string `json:"degree"`
	School      string `json:"school"`
	City        string `json:"city"`
	Country     string `json:"country"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
	GPA         string `json:"gpa,omitempty"`
}

type Skill struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Level    SkillLevel `json:"level"`
	Category string     `json:"category,omitempty"`
	Keywords []string   `json:"keywords"`
}

type Project struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	URL          string   `json:"url,omitempty"`
	Technologies []string `json:"technologies"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
}

type Certification struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Issuer       string `json:"issuer"`
	Date         string `json:"date"`
	CredentialID string `json:"credential_id,omitempty"`
	URL          string `json:"url,omitempty"`
}

type Language struct {
	ID          string              `json:"id"`
	Name        string              `json:"language"`
	Proficiency LanguageProficiency `json:"proficiency"`
}

type Reference struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Company  string `json:"company"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Template 描述简历的配色与字体，修改模板不影响正文数据。
type Template struct {
	Name     string           `json:"name"`
	Category TemplateCategory `json:"category"`
	Colors   ColorPalette     `json:"colors"`
	Font     FontPair         `json:"font"`
}

// ColorPalette 的取值为不透明字符串，通常是 hex 颜色。
type ColorPalette struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Background string `json:"background"`
	Text       string `json:"text"`
}

type FontPair struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Settings 描述导出排版参数与显示开关。
type Settings struct {
	Margin          float64  `json:"margin"`
	FontSize        float64  `json:"font_size"`
	LineHeight      float64  `json:"line_height"`
	PageSize        PageSize `json:"page_size"`
	ShowPageNumbers bool     `json:"show_page_numbers"`
	ShowHeader      bool     `json:"show_header"`
	ShowFooter      bool     `json:"show_footer"`
}

// FullName 拼出展示用姓名。
func (p PersonalInfo) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
