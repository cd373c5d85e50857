package pdf

import (
	"fmt"
	"strings"
	"time"

	"resumeforge/internal/resume"
)

// 日期字段允许的输入格式，按尝试顺序排列。
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01"}

// monthYear 将存储的日期串格式化为 "Jan 2006"；空串原样返回空。
func monthYear(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("Jan 2006"), nil
		}
	}
	return "", fmt.Errorf("malformed date %q", value)
}

// dateRange 渲染 "start – end"。end 只在 current 为真时显示 "Present"；
// current 为假且无结束日期时 end 为空串，而不是 "Present"。
func dateRange(start, end string, current bool) (string, error) {
	from, err := monthYear(start)
	if err != nil {
		return "", err
	}
	var to string
	if current {
		to = "Present"
	} else {
		to, err = monthYear(end)
		if err != nil {
			return "", err
		}
	}
	return from + " – " + to, nil
}

// skillLevelLabel 将熟练度枚举映射为展示文案。
// 未识别的值原样透出（首字母大写），不视为错误。
func skillLevelLabel(level resume.SkillLevel) string {
	switch level {
	case resume.SkillBeginner:
		return "Beginner"
	case resume.SkillIntermediate:
		return "Intermediate"
	case resume.SkillAdvanced:
		return "Advanced"
	case resume.SkillExpert:
		return "Expert"
	}
	return capitalize(string(level))
}

func languageLevelLabel(p resume.LanguageProficiency) string {
	switch p {
	case resume.ProficiencyBasic:
		return "Basic"
	case resume.ProficiencyConversational:
		return "Conversational"
	case resume.ProficiencyProfessional:
		return "Professional"
	case resume.ProficiencyNative:
		return "Native"
	}
	return capitalize(string(p))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// location 拼出 "City, Country"，两者都可缺省。
func location(city, country string) string {
	switch {
	case city == "":
		return country
	case country == "":
		return city
	}
	return city + ", " + country
}

type rgb struct{ r, g, b int }

// parseHexColor 解析 "#RRGGBB" / "RRGGBB"。颜色是业务侧的不透明字符串，
// 解析失败时回退到给定默认值而不是中断渲染。
func parseHexColor(value string, fallback rgb) rgb {
	s := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(s) != 6 {
		return fallback
	}
	var out rgb
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &out.r, &out.g, &out.b); err != nil {
		return fallback
	}
	return out
}

// coreFont 把模板声明的 Web 字体族映射到 PDF 内置字体。
func coreFont(family string) string {
	f := strings.ToLower(family)
	switch {
	case strings.Contains(f, "times"), strings.Contains(f, "georgia"),
		strings.Contains(f, "garamond"), strings.Contains(f, "serif"):
		return "Times"
	case strings.Contains(f, "courier"), strings.Contains(f, "mono"):
		return "Courier"
	}
	return "Helvetica"
}
