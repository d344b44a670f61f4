package extract

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/IvanDeyter/EmailBot/internal/model"
)

const (
	defaultOperator = "Неизвестный оператор"
	defaultWorkType = "Технические работы"
	defaultIcon     = "📡"

	// minDescription is the shortest description worth showing.
	minDescription = 50
)

var operatorIcons = map[string]string{
	"Мотив":          "📱",
	"Билайн":         "🟡",
	"МТС":            "🔴",
	"Мегафон":        "🟢",
	"Теле2":          "⚫",
	"Yota":           "🟣",
	"Devino Telecom": "💻",
	"Devino":         "💻",
	"DEVINO":         "💻",
}

// OperatorIcon returns the emoji used for an operator name.
func OperatorIcon(operator string) string {
	if icon, ok := operatorIcons[operator]; ok {
		return icon
	}
	return defaultIcon
}

// Format renders rec as a Telegram Markdown message stamped with now.
func Format(rec *model.MaintenanceRecord, now time.Time) string {
	operator := rec.Operator
	if operator == "" {
		operator = defaultOperator
	}
	workType := rec.WorkType
	if workType == "" {
		workType = defaultWorkType
	}

	lines := []string{
		OperatorIcon(operator) + " *" + operator + "*",
		"🚧 *" + workType + "*",
		"",
	}
	if rec.StartTime != "" {
		lines = append(lines, "⏰ *Начало:* "+rec.StartTime)
	}
	if rec.EndTime != "" {
		lines = append(lines, "⏱ *Окончание:* "+rec.EndTime)
	}

	desc := rec.Description
	if utf8.RuneCountInString(desc) > minDescription && !strings.Contains(strings.ToLower(desc), "ошибка") {
		lines = append(lines, "", "📝 *Описание:*", desc)
	}

	lines = append(lines, "", "📬 _"+now.Format("02.01.2006 15:04")+"_")
	return strings.Join(lines, "\n")
}
