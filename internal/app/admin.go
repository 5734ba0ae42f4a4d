package app

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"
)

// ==========================================
// АДМИН-КОМАНДЫ
// ==========================================

func isAdmin(id int64) bool {
	for _, a := range config.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

func registerAdminHandlers(b *tele.Bot) {
	b.Handle("/status", func(c tele.Context) error {
		if !isAdmin(c.Sender().ID) {
			return nil
		}
		gor, alloc, _, sys := runtimeStats()
		text := fmt.Sprintf("🤖 <b>Статус</b>\n\n"+
			"⏱ Uptime: %s\n"+
			"👥 Активных сессий: %d\n"+
			"🧵 Goroutines: %d\n"+
			"💾 Память: %s (sys %s)\n"+
			"🗂 Каталог: %s",
			formatDuration(time.Since(appStartedAt)),
			sessionManager.Count(), gor,
			formatBytes(alloc), formatBytes(sys),
			config.CatalogSource)
		return c.Send(text, tele.ModeHTML)
	})

	b.Handle("/stats", func(c tele.Context) error {
		if !isAdmin(c.Sender().ID) {
			return nil
		}
		if err := c.Send(statsManager.GetFormattedStatsText(), tele.ModeHTML); err != nil {
			return err
		}
		// Рендер PNG занимает время, уводим в ограниченный пул.
		runHeavy("stats-chart", func() {
			img, err := statsManager.GenerateStatsImage()
			if err != nil {
				log.Printf("⚠️ Ошибка генерации графика: %v", err)
				return
			}
			photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(img))}
			if _, err := b.Send(c.Chat(), photo); err != nil {
				log.Printf("⚠️ Не удалось отправить график: %v", err)
			}
		})
		return nil
	})

	b.Handle("/reload", func(c tele.Context) error {
		if !isAdmin(c.Sender().ID) {
			return nil
		}
		if config.CatalogSource != "json" {
			return c.Send("Каталог читается из БД, перезагрузка файла не нужна.")
		}
		fresh, err := NewStaticCatalog(catalogFilePath)
		if err != nil {
			return c.Send(fmt.Sprintf("❌ Ошибка перезагрузки каталога: %v", err))
		}
		swapCatalog(fresh)
		return c.Send(fmt.Sprintf("✅ Каталог перезагружен. Стран: %d", len(fresh.Countries())))
	})

	b.Handle("/seed", func(c tele.Context) error {
		if !isAdmin(c.Sender().ID) {
			return nil
		}
		if storeManager == nil {
			return c.Send("БД не подключена (catalog_source=json).")
		}
		static, err := NewStaticCatalog(catalogFilePath)
		if err != nil {
			return c.Send(fmt.Sprintf("❌ Не удалось прочитать %s: %v", catalogFilePath, err))
		}
		if err := storeManager.SeedFromStatic(static); err != nil {
			return c.Send(fmt.Sprintf("❌ Ошибка наполнения БД: %v", err))
		}
		return c.Send("✅ Готово. Пустая БД наполнена из universities.json, непустая не тронута.")
	})

	b.Handle("/digest_time", func(c tele.Context) error {
		if !isAdmin(c.Sender().ID) {
			return nil
		}
		if storeManager == nil {
			return c.Send("БД не подключена.")
		}
		arg := strings.TrimSpace(c.Message().Payload)
		if _, err := time.Parse("15:04", arg); err != nil {
			return c.Send("Формат: /digest_time HH:MM")
		}
		settings, err := storeManager.GetSettings()
		if err != nil {
			return c.Send(fmt.Sprintf("❌ Ошибка чтения настроек: %v", err))
		}
		settings.DigestTime = arg
		settings.DigestActive = true
		if err := storeManager.UpdateSettings(settings); err != nil {
			return c.Send(fmt.Sprintf("❌ Ошибка сохранения: %v", err))
		}
		return c.Send(fmt.Sprintf("✅ Дайджест дедлайнов включен, время: %s", arg))
	})

	b.Handle("/digest_off", func(c tele.Context) error {
		if !isAdmin(c.Sender().ID) {
			return nil
		}
		if storeManager == nil {
			return c.Send("БД не подключена.")
		}
		settings, err := storeManager.GetSettings()
		if err != nil {
			return c.Send(fmt.Sprintf("❌ Ошибка чтения настроек: %v", err))
		}
		settings.DigestActive = false
		if err := storeManager.UpdateSettings(settings); err != nil {
			return c.Send(fmt.Sprintf("❌ Ошибка сохранения: %v", err))
		}
		return c.Send("🔕 Дайджест дедлайнов выключен.")
	})
}
