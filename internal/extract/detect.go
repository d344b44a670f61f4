package extract

import (
	"strings"

	"github.com/IvanDeyter/EmailBot/internal/model"
)

// maintenanceKeywords mark a message as a maintenance notice.
var maintenanceKeywords = []string{
	"технических работ",
	"профилактических работ",
	"плановые работы",
	"внеплановые работы",
	"аварийные работы",
	"начало работ",
	"окончание работ",
	"техническое обслуживание",
	"затруднения в доставке",
	"временные неполадки",
}

// IsMaintenance reports whether msg looks like a maintenance notice.
func IsMaintenance(msg model.DecodedMessage) bool {
	text := strings.ToLower(msg.Subject) + " " + strings.ToLower(msg.Body)
	for _, kw := range maintenanceKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
