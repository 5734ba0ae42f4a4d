package app

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *StoreManager {
	t.Helper()
	sm := NewStoreManager(filepath.Join(t.TempDir(), "advisor.db"))
	t.Cleanup(func() { sm.CloseDB() })
	if err := sm.SeedFromStatic(testCatalog()); err != nil {
		t.Fatalf("наполнение БД: %v", err)
	}
	return sm
}

func TestStoreSeedAndCatalog(t *testing.T) {
	sm := newTestStore(t)

	countries := sm.Countries()
	if len(countries) != 2 || countries[0] != "Венгрия" || countries[1] != "Германия" {
		t.Fatalf("страны: %v", countries)
	}

	unis, ok := sm.Universities("Венгрия")
	if !ok || len(unis) != 2 {
		t.Fatalf("университеты: %v, ok=%v", unis, ok)
	}

	entry, ok := sm.Entry("Венгрия", "ELTE")
	if !ok {
		t.Fatal("ELTE не найден")
	}
	if _, has := entry.Sections["documents"]; !has {
		t.Fatalf("секции: %v", entry.Sections)
	}
	if !strings.Contains(entry.Sections["programs"], "Computer Science") {
		t.Fatalf("программы: %q", entry.Sections["programs"])
	}
	if len(entry.Links) != 1 || entry.Links[0].Label != "Сайт" {
		t.Fatalf("ссылки: %+v", entry.Links)
	}

	if _, ok := sm.Entry("Венгрия", "Нет такого"); ok {
		t.Fatal("несуществующий университет должен давать ok=false")
	}
	if _, ok := sm.Universities("Франция"); ok {
		t.Fatal("несуществующая страна должна давать ok=false")
	}
}

// Повторное наполнение непустой базы — no-op.
func TestStoreSeedIdempotent(t *testing.T) {
	sm := newTestStore(t)
	if err := sm.SeedFromStatic(testCatalog()); err != nil {
		t.Fatalf("повторное наполнение: %v", err)
	}
	if got := sm.DashboardCounts()["countries"]; got != 2 {
		t.Fatalf("стран после повторного сида: %d", got)
	}
}

func TestStoreSearchUniversities(t *testing.T) {
	sm := newTestStore(t)

	all := sm.SearchUniversities("", "", "")
	if len(all) != 3 {
		t.Fatalf("всего университетов %d, ожидалось 3", len(all))
	}

	byName := sm.SearchUniversities("elte", "", "")
	if len(byName) != 1 || byName[0].Name != "ELTE" {
		t.Fatalf("поиск по имени: %+v", byName)
	}

	byCountry := sm.SearchUniversities("", "Германия", "")
	if len(byCountry) != 1 || byCountry[0].Name != "TUM" {
		t.Fatalf("поиск по стране: %+v", byCountry)
	}

	byDirection := sm.SearchUniversities("", "", "business")
	if len(byDirection) != 1 || byDirection[0].Name != "BGE" {
		t.Fatalf("поиск по направлению: %+v", byDirection)
	}

	if got := sm.SearchUniversities("", "Франция", ""); got != nil {
		t.Fatalf("несуществующая страна: %+v", got)
	}
}

func TestStoreFeedback(t *testing.T) {
	sm := newTestStore(t)

	fb := Feedback{PublicID: "test-id", ChatID: 42, Text: "Отличный бот", Rating: 5}
	if err := sm.CreateFeedback(&fb); err != nil {
		t.Fatalf("создание отзыва: %v", err)
	}

	list := sm.ListFeedback(10)
	if len(list) != 1 || list[0].Text != "Отличный бот" {
		t.Fatalf("отзывы: %+v", list)
	}
}

func TestStoreSettingsAndDigest(t *testing.T) {
	sm := newTestStore(t)

	settings, err := sm.GetSettings()
	if err != nil {
		t.Fatalf("настройки: %v", err)
	}
	if settings.DigestActive {
		t.Fatal("дайджест должен быть выключен по умолчанию")
	}
	if settings.DigestTime != "09:00" {
		t.Fatalf("время по умолчанию: %q", settings.DigestTime)
	}

	settings.DigestActive = true
	settings.DigestTime = "10:30"
	if err := sm.UpdateSettings(settings); err != nil {
		t.Fatalf("сохранение настроек: %v", err)
	}
	again, _ := sm.GetSettings()
	if !again.DigestActive || again.DigestTime != "10:30" {
		t.Fatalf("настройки не сохранились: %+v", again)
	}

	// Подписчики дайджеста.
	sm.DB.Create(&BotUser{ID: 1, DigestActive: true})
	sm.DB.Create(&BotUser{ID: 2})
	ids := sm.DigestRecipients()
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("получатели: %v", ids)
	}
	if err := sm.SetDigestActive(2, true); err != nil {
		t.Fatalf("подписка: %v", err)
	}
	if len(sm.DigestRecipients()) != 2 {
		t.Fatal("подписка не применилась")
	}
}

func TestStoreUpcomingPrograms(t *testing.T) {
	sm := newTestStore(t)

	uni, ok := sm.GetUniversity(1)
	if !ok {
		t.Fatal("университет id=1 не найден")
	}
	sm.DB.Create(&Program{UniversityID: uni.ID, Name: "Скоро дедлайн", Deadline: time.Now().AddDate(0, 0, 7)})
	sm.DB.Create(&Program{UniversityID: uni.ID, Name: "Дедлайн прошел", Deadline: time.Now().AddDate(0, 0, -1)})
	sm.DB.Create(&Program{UniversityID: uni.ID, Name: "Далеко", Deadline: time.Now().AddDate(0, 2, 0)})

	upcoming := sm.UpcomingPrograms(14)
	if len(upcoming) != 1 || upcoming[0].Name != "Скоро дедлайн" {
		t.Fatalf("ближайшие дедлайны: %+v", upcoming)
	}
}

func TestStoreDashboardCounts(t *testing.T) {
	sm := newTestStore(t)
	counts := sm.DashboardCounts()

	if counts["countries"] != 2 {
		t.Fatalf("countries = %d", counts["countries"])
	}
	if counts["universities"] != 3 {
		t.Fatalf("universities = %d", counts["universities"])
	}
	if _, ok := counts["transitions_7d"]; !ok {
		t.Fatal("нет агрегата transitions_7d")
	}
}
