package notify

import (
	"fmt"
	"time"

	"github.com/IvanDeyter/EmailBot/internal/model"
)

const stampLayout = "02.01.2006 15:04:05"

// TestMessage is posted by the self-check.
func TestMessage(now time.Time) string {
	return fmt.Sprintf(`🤖 *Тест Email-Telegram бота*

✅ Подключение к почте: OK
✅ Парсинг писем: OK
✅ Подключение к Telegram: OK

🕒 Время теста: %s

_Бот готов к работе!_`, now.Format(stampLayout))
}

// ErrorMessage wraps an operator alert.
func ErrorMessage(text string, now time.Time) string {
	return fmt.Sprintf(`⚠️ *Ошибка в работе бота*

🚨 %s

🕒 %s

_Проверьте логи для подробной информации_`, text, now.Format(stampLayout))
}

// StartupMessage announces that the watcher is running.
func StartupMessage(sender string, interval time.Duration, now time.Time) string {
	return fmt.Sprintf(`🚀 *Email-Telegram бот запущен*

📧 Мониторинг: %s
⏰ Интервал проверки: %d сек
🕒 Время запуска: %s

_Бот готов к работе!_`, sender, int(interval.Seconds()), now.Format(stampLayout))
}

// StatsMessage reports the counters of a running watcher.
func StatsMessage(st model.Stats, now time.Time) string {
	up := st.Uptime(now)
	hours := int(up.Hours())
	minutes := int(up.Minutes()) % 60
	return fmt.Sprintf(`📊 *Статистика работы бота*

⏰ Время работы: %dч %dм
📧 Обработано писем: %d
📤 Отправлено уведомлений: %d
❌ Ошибок: %d

🕒 %s`, hours, minutes, st.EmailsProcessed, st.NotificationsSent, st.Errors, now.Format(stampLayout))
}

// StopMessage reports the session counters on shutdown.
func StopMessage(st model.Stats, now time.Time) string {
	return fmt.Sprintf(`🛑 *Email-Telegram бот остановлен*

📊 Статистика сессии:
• Обработано писем: %d
• Отправлено уведомлений: %d
• Ошибок: %d

🕒 %s`, st.EmailsProcessed, st.NotificationsSent, st.Errors, now.Format(stampLayout))
}
