package extract

import (
	"regexp"
	"strings"
)

// Rule looks for one field in a message. subject is the raw subject line
// and text is the subject and body joined by a newline. A rule reports
// false when it has nothing to say, and the next rule is tried.
type Rule func(subject, text string) (string, bool)

// apply runs rules in order and returns the first match, or "".
func apply(rules []Rule, subject, text string) string {
	for _, rule := range rules {
		if val, ok := rule(subject, text); ok {
			return val
		}
	}
	return ""
}

// word is a Unicode-aware \w, plus whitespace.
const word = `[\p{L}\p{N}_\s]`

// capture builds a rule returning the first submatch of pattern, matched
// case-insensitively against text, passed through clean.
func capture(pattern string, clean func(string) string) Rule {
	re := regexp.MustCompile(`(?i)` + pattern)
	return func(_, text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		val := strings.TrimSpace(m[1])
		if clean != nil {
			val = clean(val)
		}
		return val, val != ""
	}
}

// substring builds a rule returning result when text contains needle,
// ignoring case.
func substring(needle, result string) Rule {
	needle = strings.ToLower(needle)
	return func(_, text string) (string, bool) {
		if strings.Contains(strings.ToLower(text), needle) {
			return result, true
		}
		return "", false
	}
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// KnownOperators are matched as plain substrings when no operator
// phrase is found. Order decides ties.
var KnownOperators = []string{
	"Билайн", "МТС", "Мегафон", "Теле2", "Yota", "Мотив", "Devino Telecom",
}

func cleanOperator(s string) string {
	s = strings.TrimSpace(nonWord.ReplaceAllString(s, ""))
	if strings.Contains(strings.ToLower(s), "devino") {
		return "Devino Telecom"
	}
	return s
}

// OperatorRules find the carrier or platform a notice is about.
var OperatorRules = func() []Rule {
	rules := []Rule{
		capture(`оператор\s+(`+word+`+?)(?:\s+сообщил|$)`, cleanOperator),
		capture(`оператора\s+(`+word+`+?)(?:\s|$|\.)`, cleanOperator),
		capture(`стороне оператора\s+(`+word+`+?)(?:\s|$|\.)`, cleanOperator),
		capture(`платформе\s+(Devino\s+Telecom)`, cleanOperator),
		capture(`платформы\s+(DEVINO)`, cleanOperator),
		capture(`работы на стороне оператора\s+(`+word+`+?)(?:\s|$)`, cleanOperator),
		capture(`работы на платформе\s+(`+word+`+?)(?:\s|$)`, cleanOperator),
	}
	for _, name := range KnownOperators {
		rules = append(rules, substring(name, name))
	}
	return rules
}()

const dateTime = `(\d{1,2}\.\d{1,2}\.\d{4}\s+\d{1,2}:\d{2})`

// StartTimeRules find when the work begins. The value is kept verbatim.
var StartTimeRules = []Rule{
	capture(`[Нн]ачало работ[:\s]*\*?\*?\s*`+dateTime, nil),
	capture(`[Нн]ачало[:\s]*\*?\*?\s*`+dateTime, nil),
	capture(`[Сс]\s*`+dateTime, nil),
}

// EndTimeRules find when the work ends. The value is kept verbatim.
var EndTimeRules = []Rule{
	capture(`[Оо]кончание работ[:\s]*\*?\*?\s*`+dateTime, nil),
	capture(`[Оо]кончание[:\s]*\*?\*?\s*`+dateTime, nil),
	capture(`[Пп]о\s*`+dateTime, nil),
}

var (
	replyPrefix    = regexp.MustCompile(`^\s*[Rr][Ee]:\s*`)
	workIndicators = []string{"работы", "работ", "обслуживание", "техническ"}
)

// subjectWorkType returns the subject itself, minus a reply prefix, when
// it already reads like a work description.
func subjectWorkType(subject, _ string) (string, bool) {
	clean := strings.TrimSpace(replyPrefix.ReplaceAllString(strings.TrimSpace(subject), ""))
	if clean == "" {
		return "", false
	}
	lower := strings.ToLower(clean)
	for _, ind := range workIndicators {
		if strings.Contains(lower, ind) {
			return clean, true
		}
	}
	return "", false
}

// WorkTypeRules classify the kind of work.
var WorkTypeRules = []Rule{
	subjectWorkType,
	capture(`([Вв]неплановые\s+работы[^.]*)`, nil),
	capture(`([Пп]лановые\s+работы[^.]*)`, nil),
	capture(`([Аа]варийные\s+работы[^.]*)`, nil),
	capture(`([Пп]рофилактические\s+работы[^.]*)`, nil),
	capture(`([Тт]ехнические\s+работы[^.]*)`, nil),
	substring("внеплановые", "Внеплановые работы"),
	substring("плановые", "Плановые работы"),
	substring("аварийные", "Аварийные работы"),
	substring("профилактические", "Профилактические работы"),
	substring("технических работ", "Технические работы"),
}
