package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxDescription     = 300
	noDescription      = "Описание недоступно"
	descriptionEllipse = "..."
)

var (
	markupTag  = regexp.MustCompile(`<[^>]+>`)
	whitespace = regexp.MustCompile(`\s+`)

	boilerplate = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Copyright.*?rights reserved`),
		regexp.MustCompile(`(?i)Обратная связь`),
		regexp.MustCompile(`(?i)Отписаться от рассылки`),
		regexp.MustCompile(`(?i)Открыть в браузере`),
		regexp.MustCompile(`(?i)Информационная рассылка`),
		regexp.MustCompile(`(?i)\+7\s*\(\d+\)\s*\d+(?:-\d+)+`),
		regexp.MustCompile(`(?i)Бесплатная линия.*?России`),
	}

	mainContent = regexp.MustCompile(`(?is)(Уважаемые клиенты.*?)(?:Техническая поддержка|Copyright|\+7|$)`)
)

// Describe returns a short human description of a notice body: markup
// and mailing-list boilerplate removed, cut to the greeting paragraph
// when there is one, and at most 300 characters plus an ellipsis.
func Describe(body string) string {
	clean := markupTag.ReplaceAllString(body, "")
	clean = strings.TrimSpace(whitespace.ReplaceAllString(clean, " "))
	for _, re := range boilerplate {
		clean = re.ReplaceAllString(clean, "")
	}
	clean = strings.TrimSpace(whitespace.ReplaceAllString(clean, " "))

	if m := mainContent.FindStringSubmatch(clean); m != nil {
		return truncate(strings.TrimSpace(m[1]), maxDescription)
	}
	if clean == "" {
		return noDescription
	}
	return truncate(clean, maxDescription)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + descriptionEllipse
}
