package app

import (
	"fmt"
	"log"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"
)

// StartScheduler запускает фоновую проверку времени.
func StartScheduler(bot *tele.Bot, sm *StoreManager) {
	log.Println("⏰ Планировщик запущен")

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		checkAndSendDigest(bot, sm)
		checkAndVacuum(sm)
	}
}

// checkAndSendDigest рассылает подписчикам дайджест ближайших дедлайнов
// раз в день в настроенное время.
func checkAndSendDigest(bot *tele.Bot, sm *StoreManager) {
	settings, err := sm.GetSettings()
	if err != nil {
		log.Println("❌ Ошибка чтения настроек планировщика:", err)
		return
	}
	if !settings.DigestActive {
		return
	}

	now := time.Now()
	// Уже отправляли сегодня — выходим.
	if settings.DigestLastRun.Year() == now.Year() && settings.DigestLastRun.YearDay() == now.YearDay() {
		return
	}

	targetTime, err := time.Parse("15:04", settings.DigestTime)
	if err != nil {
		log.Println("⚠️ Неверный формат времени в БД:", settings.DigestTime)
		return
	}
	if now.Hour() != targetTime.Hour() || now.Minute() != targetTime.Minute() {
		return
	}

	programs := sm.UpcomingPrograms(30)
	if len(programs) == 0 {
		// Нечего напоминать, но день засчитываем, чтобы не проверять каждую минуту.
		settings.DigestLastRun = now
		if err := sm.UpdateSettings(settings); err != nil {
			log.Printf("⚠️ Не удалось обновить DigestLastRun: %v", err)
		}
		return
	}

	recipients := sm.DigestRecipients()
	if len(recipients) == 0 {
		settings.DigestLastRun = now
		_ = sm.UpdateSettings(settings)
		return
	}

	text := formatDigest(sm, programs)
	log.Printf("🔔 Время дайджеста (%s). Программ: %d, получателей: %d", settings.DigestTime, len(programs), len(recipients))

	sent := 0
	for _, chatID := range recipients {
		id := chatID
		err := sendWithRetry(3, 500*time.Millisecond, func() error {
			_, e := bot.Send(&tele.User{ID: id}, text, tele.ModeHTML)
			return e
		})
		if err != nil {
			log.Printf("⚠️ Не удалось отправить дайджест %d: %v", id, err)
			continue
		}
		sent++
		// Щадим лимиты Telegram на массовую рассылку.
		time.Sleep(100 * time.Millisecond)
	}

	settings.DigestLastRun = now
	if err := sm.UpdateSettings(settings); err != nil {
		log.Printf("⚠️ Не удалось обновить DigestLastRun: %v", err)
	}
	log.Printf("✅ Дайджест разослан: %d/%d", sent, len(recipients))
}

func formatDigest(sm *StoreManager, programs []Program) string {
	var sb strings.Builder
	sb.WriteString("⏰ <b>Ближайшие дедлайны подачи</b>\n\n")
	for i, p := range programs {
		if i >= 10 {
			fmt.Fprintf(&sb, "\n... и еще %d программ", len(programs)-10)
			break
		}
		uniName := "—"
		if uni, ok := sm.GetUniversity(p.UniversityID); ok {
			uniName = uni.Name
		}
		fmt.Fprintf(&sb, "• <b>%s</b> (%s)\n  до %s\n", p.Name, uniName, p.Deadline.Format("02.01.2006"))
	}
	sb.WriteString("\nОтключить напоминания: /digest")
	return sb.String()
}

// checkAndVacuum оптимизирует и бэкапит базу раз в неделю, в ночь на
// воскресенье.
func checkAndVacuum(sm *StoreManager) {
	now := time.Now()
	if now.Weekday() == time.Sunday && now.Hour() == 3 && now.Minute() == 0 {
		log.Println("💾 Еженедельная оптимизация БД...")
		if err := sm.Vacuum(); err != nil {
			log.Printf("⚠️ Ошибка Vacuum: %v", err)
		}
		if err := copyFile(sm.FilePath, dbBackupFilePath); err != nil {
			log.Printf("⚠️ Ошибка бэкапа БД: %v", err)
		} else {
			log.Printf("✅ Бэкап БД: %s", dbBackupFilePath)
		}
		time.Sleep(61 * time.Second)
	}
}
