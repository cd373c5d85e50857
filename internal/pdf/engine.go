package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"resumeforge/internal/resume"
)

// RenderError 表示渲染失败，并携带失败时正在处理的分区名。
// 引擎不会跳过坏数据继续输出：残缺但"成功"的导出比显式失败更难排查。
type RenderError struct {
	Section string
	Err     error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render section %s: %v", e.Section, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

const (
	// pt 转 mm。行高 = font_size * line_height（pt），纵向推进用 mm。
	ptToMM = 25.4 / 72

	// 条目级分页阈值：光标越过距页底边距 bottomGuard 时换页，
	// 保证条目不会从页面最底部开始。
	bottomGuard = 25.0

	headingSize    = 14.0
	nameSize       = 24.0
	jobTitleSize   = 14.0
	contactSize    = 10.0
	entryTitleSize = 12.0
	metaSize       = 10.0
	tableSize      = 9.0
	footerSize     = 8.0

	tableRowH = 7.0
)

var metaGray = rgb{100, 100, 100}

// Render 将完整的简历聚合同步渲染为 PDF 字节流。
// 布局是确定性的：相同聚合两次导出得到字节一致的文档
//（生成时间戳固定为聚合的 last_modified）。
func Render(r *resume.Resume) ([]byte, error) {
	return render(r, true)
}

func render(r *resume.Resume, compress bool) ([]byte, error) {
	doc, err := buildDocument(r, compress)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, &RenderError{Section: "document", Err: err}
	}
	return buf.Bytes(), nil
}

// canvas 维护一张固定宽度的虚拟页面与纵向光标 y。
type canvas struct {
	pdf *fpdf.Fpdf
	r   *resume.Resume
	tr  func(string) string

	margin   float64
	pageW    float64
	pageH    float64
	contentW float64
	lineH    float64

	headingFont string
	bodyFont    string
	primary     rgb
	body        rgb

	y float64
}

func buildDocument(r *resume.Resume, compress bool) (*fpdf.Fpdf, error) {
	set := r.Settings
	size := string(set.PageSize)
	if !set.PageSize.Valid() {
		size = string(resume.PageA4)
	}

	doc := fpdf.New("P", "mm", size, "")
	// 字体资源字典按 map 遍历写出，不排序会导致两次导出字节不同。
	doc.SetCatalogSort(true)
	doc.SetCompression(compress)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCreationDate(r.LastModified.UTC())

	fullName := r.PersonalInfo.FullName()
	doc.SetTitle(fullName+" - Resume", true)
	doc.SetAuthor(fullName, true)
	doc.SetSubject("Professional Resume", true)
	doc.SetKeywords("resume, cv, professional", true)

	pageW, pageH := doc.GetPageSize()
	c := &canvas{
		pdf:         doc,
		r:           r,
		tr:          doc.UnicodeTranslatorFromDescriptor(""),
		margin:      set.Margin,
		pageW:       pageW,
		pageH:       pageH,
		contentW:    pageW - 2*set.Margin,
		lineH:       set.FontSize * set.LineHeight * ptToMM,
		headingFont: coreFont(r.Template.Font.Heading),
		bodyFont:    coreFont(r.Template.Font.Body),
		// 颜色按分区现取：导出前换模板对全文一致生效。
		primary: parseHexColor(r.Template.Colors.Primary, rgb{0, 0, 0}),
		body:    parseHexColor(r.Template.Colors.Text, rgb{0, 0, 0}),
	}

	if set.ShowFooter && set.ShowPageNumbers {
		doc.AliasNbPages("")
		doc.SetFooterFunc(func() {
			doc.SetFont(c.bodyFont, "", footerSize)
			doc.SetTextColor(150, 150, 150)
			label := fmt.Sprintf("Page %d of {nb}", doc.PageNo())
			doc.Text(pageW-c.margin-20, pageH-c.margin, label)
		})
	}

	doc.AddPage()
	c.y = c.margin

	// 分区按固定的规范顺序渲染，空分区整体跳过。
	type section struct {
		name   string
		render func() error
	}
	for _, s := range []section{
		{"header", c.header},
		{"summary", c.summary},
		{"work_experience", c.workExperience},
		{"education", c.education},
		{"skills", c.skills},
		{"projects", c.projects},
		{"certifications", c.certifications},
		{"languages", c.languages},
		{"hobbies", c.hobbies},
	} {
		if err := s.render(); err != nil {
			return nil, &RenderError{Section: s.name, Err: err}
		}
	}

	if doc.Err() {
		return nil, &RenderError{Section: "document", Err: doc.Error()}
	}
	return doc, nil
}

func (c *canvas) newPage() {
	c.pdf.AddPage()
	c.y = c.margin
}

// ensureRoom 在渲染每个条目（而非每一行）之前检查近底部阈值。
func (c *canvas) ensureRoom() {
	if c.y > c.pageH-c.margin-bottomGuard {
		c.newPage()
	}
}

func (c *canvas) setColor(col rgb) { c.pdf.SetTextColor(col.r, col.g, col.b) }

// wrap 是测量与绘制共用的唯一换行函数；宽度不一致会造成重叠或提前分页。
func (c *canvas) wrap(text string, width float64) []string {
	return c.pdf.SplitText(c.tr(text), width)
}

// drawLines 逐行绘制并推进光标；起笔于阈值附近的长段落
// 允许跨页续排（逐行推进的已知限制，不是无拆分保证）。
func (c *canvas) drawLines(lines []string, x float64) {
	for _, line := range lines {
		if c.y > c.pageH-c.margin {
			c.newPage()
		}
		c.pdf.Text(x, c.y, line)
		c.y += c.lineH
	}
}

// sectionHeading 渲染分区标题与下划线：加粗、主色、固定字号。
func (c *canvas) sectionHeading(title string) {
	c.ensureRoom()
	c.pdf.SetFont(c.headingFont, "B", headingSize)
	c.setColor(c.primary)
	c.pdf.Text(c.margin, c.y, c.tr(title))
	c.pdf.SetDrawColor(c.primary.r, c.primary.g, c.primary.b)
	c.pdf.Line(c.margin, c.y+2, c.pageW-c.margin, c.y+2)
	c.y += 10
}

func (c *canvas) header() error {
	if !c.r.Settings.ShowHeader {
		return nil
	}
	pi := c.r.PersonalInfo

	c.y += nameSize * ptToMM
	if name := pi.FullName(); name != "" {
		c.pdf.SetFont(c.headingFont, "B", nameSize)
		c.setColor(c.primary)
		w := c.pdf.GetStringWidth(c.tr(name))
		c.pdf.Text((c.pageW-w)/2, c.y, c.tr(name))
		c.y += 8
	}

	if pi.JobTitle != "" {
		c.pdf.SetFont(c.bodyFont, "", jobTitleSize)
		c.setColor(c.body)
		w := c.pdf.GetStringWidth(c.tr(pi.JobTitle))
		c.pdf.Text((c.pageW-w)/2, c.y, c.tr(pi.JobTitle))
		c.y += 6
	}

	contacts := make([]string, 0, 6)
	for _, v := range []string{pi.Email, pi.Phone, location(pi.City, pi.Country), pi.Website, pi.LinkedIn, pi.GitHub} {
		if v != "" {
			contacts = append(contacts, v)
		}
	}
	if len(contacts) > 0 {
		c.pdf.SetFont(c.bodyFont, "", contactSize)
		c.setColor(c.body)
		spacing := c.pageW / float64(len(contacts)+1)
		for i, info := range contacts {
			w := c.pdf.GetStringWidth(c.tr(info))
			c.pdf.Text(spacing*float64(i+1)-w/2, c.y, c.tr(info))
		}
	}
	c.y += 15
	return nil
}

func (c *canvas) summary() error {
	if c.r.PersonalInfo.Summary == "" {
		return nil
	}
	c.sectionHeading("PROFILE")
	c.pdf.SetFont(c.bodyFont, "", c.r.Settings.FontSize)
	c.setColor(c.body)
	c.drawLines(c.wrap(c.r.PersonalInfo.Summary, c.contentW), c.margin)
	c.y += 8
	return nil
}

// entryHead 渲染条目首行：标题加粗靠左，对应机构同基线靠右。
func (c *canvas) entryHead(title, counterpart string, size float64) {
	c.pdf.SetFont(c.headingFont, "B", size)
	c.setColor(c.primary)
	c.pdf.Text(c.margin, c.y, c.tr(title))
	if counterpart != "" {
		c.pdf.SetFont(c.bodyFont, "", size)
		w := c.pdf.GetStringWidth(c.tr(counterpart))
		c.pdf.Text(c.pageW-c.margin-w, c.y, c.tr(counterpart))
	}
	c.y += 6
}

// entryMeta 渲染次行：日期区间靠左，地点靠右。
func (c *canvas) entryMeta(dates, loc string) {
	c.pdf.SetFont(c.bodyFont, "", metaSize)
	c.setColor(metaGray)
	c.pdf.Text(c.margin, c.y, c.tr(dates))
	if loc != "" {
		w := c.pdf.GetStringWidth(c.tr(loc))
		c.pdf.Text(c.pageW-c.margin-w, c.y, c.tr(loc))
	}
	c.y += 6
}

func (c *canvas) bodyText(text string) {
	if text == "" {
		return
	}
	c.pdf.SetFont(c.bodyFont, "", c.r.Settings.FontSize)
	c.setColor(c.body)
	c.drawLines(c.wrap(text, c.contentW), c.margin)
}

// bullets 渲染要点行，每行独立按内容宽度换行。
func (c *canvas) bullets(items []string) {
	c.pdf.SetFont(c.bodyFont, "", c.r.Settings.FontSize)
	c.setColor(c.body)
	bullet := c.tr("• ")
	bulletW := c.pdf.GetStringWidth(bullet)
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		lines := c.wrap(item, c.contentW-bulletW)
		if c.y > c.pageH-c.margin {
			c.newPage()
		}
		c.pdf.Text(c.margin, c.y, bullet)
		c.drawLines(lines, c.margin+bulletW)
	}
}

func (c *canvas) workExperience() error {
	if len(c.r.WorkExperience) == 0 {
		return nil
	}
	c.sectionHeading("WORK EXPERIENCE")
	// 条目严格按数组序渲染，绝不按日期等派生键重排。
	for _, exp := range c.r.WorkExperience {
		c.ensureRoom()
		dates, err := dateRange(exp.StartDate, exp.EndDate, exp.Current)
		if err != nil {
			return err
		}
		c.entryHead(exp.JobTitle, exp.Employer, entryTitleSize)
		c.entryMeta(dates, location(exp.City, exp.Country))
		c.bodyText(exp.Description)
		c.bullets(exp.Achievements)
		c.y += 8
	}
	return nil
}

func (c *canvas) education() error {
	if len(c.r.Education) == 0 {
		return nil
	}
	c.sectionHeading("EDUCATION")
	for _, edu := range c.r.Education {
		c.ensureRoom()
		dates, err := dateRange(edu.StartDate, edu.EndDate, edu.Current)
		if err != nil {
			return err
		}
		c.entryHead(edu.Degree, edu.School, entryTitleSize)
		c.entryMeta(dates, location(edu.City, edu.Country))
		if edu.GPA != "" {
			c.pdf.SetFont(c.bodyFont, "", metaSize)
			c.setColor(c.body)
			c.pdf.Text(c.margin, c.y, c.tr("GPA: "+edu.GPA))
			c.y += 5
		}
		c.bodyText(edu.Description)
		c.y += 8
	}
	return nil
}

// skills 以固定列宽的表格呈现（名称/类别/熟练度），而非自由文本。
func (c *canvas) skills() error {
	if len(c.r.Skills) == 0 {
		return nil
	}
	c.sectionHeading("SKILLS")
	widths := []float64{60, 60, 30}
	c.tableHeader([]string{"Skill", "Category", "Level"}, widths, true)
	for _, skill := range c.r.Skills {
		c.tableRow([]string{skill.Name, skill.Category, skillLevelLabel(skill.Level)}, widths, "1")
	}
	c.y += 10
	return nil
}

func (c *canvas) languages() error {
	if len(c.r.Languages) == 0 {
		return nil
	}
	c.sectionHeading("LANGUAGES")
	widths := []float64{80, 80}
	c.tableHeader([]string{"Language", "Proficiency"}, widths, false)
	for _, lang := range c.r.Languages {
		c.tableRow([]string{lang.Name, languageLevelLabel(lang.Proficiency)}, widths, "")
	}
	c.y += 10
	return nil
}

func (c *canvas) tableHeader(cells []string, widths []float64, grid bool) {
	border := ""
	if grid {
		border = "1"
	}
	c.pdf.SetFont(c.bodyFont, "B", tableSize)
	c.pdf.SetFillColor(c.primary.r, c.primary.g, c.primary.b)
	c.pdf.SetTextColor(255, 255, 255)
	c.pdf.SetXY(c.margin, c.y)
	for i, cell := range cells {
		c.pdf.CellFormat(widths[i], tableRowH, c.tr(cell), border, 0, "LM", true, 0, "")
	}
	c.y += tableRowH
}

func (c *canvas) tableRow(cells []string, widths []float64, border string) {
	if c.y+tableRowH > c.pageH-c.margin {
		c.newPage()
	}
	c.pdf.SetFont(c.bodyFont, "", tableSize)
	c.setColor(c.body)
	c.pdf.SetXY(c.margin, c.y)
	for i, cell := range cells {
		c.pdf.CellFormat(widths[i], tableRowH, c.tr(cell), border, 0, "LM", false, 0, "")
	}
	c.y += tableRowH
}

func (c *canvas) projects() error {
	if len(c.r.Projects) == 0 {
		return nil
	}
	c.sectionHeading("PROJECTS")
	for _, project := range c.r.Projects {
		c.ensureRoom()
		c.entryHead(project.Title, "", entryTitleSize)
		if len(project.Technologies) > 0 {
			c.pdf.SetFont(c.bodyFont, "", tableSize)
			c.setColor(metaGray)
			c.pdf.Text(c.margin, c.y, c.tr(strings.Join(project.Technologies, " • ")))
			c.y += 5
		}
		c.bodyText(project.Description)
		c.y += 8
	}
	return nil
}

func (c *canvas) certifications() error {
	if len(c.r.Certifications) == 0 {
		return nil
	}
	c.sectionHeading("CERTIFICATIONS")
	for _, cert := range c.r.Certifications {
		c.ensureRoom()
		c.entryHead(cert.Name, cert.Issuer, 11)
		if cert.Date != "" {
			issued, err := monthYear(cert.Date)
			if err != nil {
				return err
			}
			c.pdf.SetFont(c.bodyFont, "", tableSize)
			c.setColor(metaGray)
			c.pdf.Text(c.margin, c.y, issued)
			c.y += 4
		}
		c.y += 6
	}
	return nil
}

func (c *canvas) hobbies() error {
	if len(c.r.Hobbies) == 0 {
		return nil
	}
	c.sectionHeading("HOBBIES & INTERESTS")
	c.pdf.SetFont(c.bodyFont, "", c.r.Settings.FontSize)
	c.setColor(c.body)
	c.drawLines(c.wrap(strings.Join(c.r.Hobbies, " • "), c.contentW), c.margin)
	return nil
}
