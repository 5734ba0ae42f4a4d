package app

import (
	"os"
	"path/filepath"
	"testing"
)

func testCatalog() *StaticCatalog {
	return buildStaticCatalog(map[string]map[string]staticUniversity{
		"Венгрия": {
			"ELTE": {
				Card:      "ELTE: IT, инженерия и компьютерные науки",
				Documents: "Аттестат\nПаспорт",
				Deadlines: "до 30 июня",
				Programs:  "Computer Science (BSc)",
				Links:     map[string]string{"Сайт": "https://www.elte.hu/en"},
			},
			"BGE": {
				Card:     "BGE: бизнес и финансы",
				Programs: "Business Administration (BSc)",
			},
		},
		"Германия": {
			"TUM": {
				Card:         "TUM: инженерия и информатика",
				Scholarships: "DAAD",
				Programs:     "Informatics (BSc)",
			},
		},
	})
}

func TestStaticCatalogOrdering(t *testing.T) {
	c := testCatalog()

	countries := c.Countries()
	if len(countries) != 2 || countries[0] != "Венгрия" || countries[1] != "Германия" {
		t.Fatalf("страны не отсортированы: %v", countries)
	}

	unis, ok := c.Universities("Венгрия")
	if !ok {
		t.Fatal("Венгрия не найдена")
	}
	if len(unis) != 2 || unis[0] != "BGE" || unis[1] != "ELTE" {
		t.Fatalf("университеты не отсортированы: %v", unis)
	}

	if _, ok := c.Universities("Франция"); ok {
		t.Fatal("несуществующая страна должна давать ok=false")
	}
}

func TestStaticCatalogEntrySections(t *testing.T) {
	c := testCatalog()

	entry, ok := c.Entry("Венгрия", "ELTE")
	if !ok {
		t.Fatal("ELTE не найден")
	}
	if entry.Country != "Венгрия" || entry.Name != "ELTE" {
		t.Fatalf("неверные поля: %+v", entry)
	}
	// Пустые секции не попадают в карту.
	if _, has := entry.Sections["scholarships"]; has {
		t.Fatal("пустая секция scholarships не должна присутствовать")
	}
	for _, sec := range []string{"documents", "deadlines", "programs"} {
		if _, has := entry.Sections[sec]; !has {
			t.Fatalf("секция %s потеряна", sec)
		}
	}

	if _, ok := c.Entry("Венгрия", "Нет такого"); ok {
		t.Fatal("несуществующий университет должен давать ok=false")
	}
}

func TestFindByDirection(t *testing.T) {
	c := testCatalog()

	found := FindByDirection(c, "it")
	if len(found) != 2 {
		t.Fatalf("it: найдено %d, ожидалось 2 (ELTE и TUM)", len(found))
	}

	found = FindByDirection(c, "business")
	if len(found) != 1 || found[0].Name != "BGE" {
		t.Fatalf("business: получено %v", found)
	}

	if found := FindByDirection(c, "medicine"); len(found) != 0 {
		t.Fatalf("medicine: ожидалось пусто, получено %d", len(found))
	}

	if found := FindByDirection(c, "nonexistent"); len(found) != 0 {
		t.Fatalf("неизвестное направление должно давать пустой результат")
	}
}

// Поиск не зависит от регистра и ловит ключевые слова и в карточке,
// и в списке программ.
func TestEntryMatchesDirectionCaseInsensitive(t *testing.T) {
	e := &CatalogEntry{
		Card:     "Ведущий вуз страны",
		Sections: map[string]string{"programs": "COMPUTER SCIENCE (BSC)"},
	}
	if !entryMatchesDirection(e, "it") {
		t.Fatal("совпадение в верхнем регистре не найдено")
	}
	// Стем только в карточке работает так же, как стем только в программах.
	cardOnly := &CatalogEntry{Card: "Инженерный вуз", Sections: map[string]string{}}
	if !entryMatchesDirection(cardOnly, "it") {
		t.Fatal("совпадение по карточке не найдено")
	}
	if entryMatchesDirection(nil, "it") {
		t.Fatal("nil-запись не должна совпадать")
	}
}

func TestNewStaticCatalogFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "universities.json")
	doc := `{"Венгрия":{"ELTE":{"card":"ELTE","documents":"Аттестат","links":{"Сайт":"https://www.elte.hu/en"}}}}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := NewStaticCatalog(path)
	if err != nil {
		t.Fatalf("загрузка каталога: %v", err)
	}
	entry, ok := c.Entry("Венгрия", "ELTE")
	if !ok || entry.Card != "ELTE" {
		t.Fatalf("получено %+v, ok=%v", entry, ok)
	}
	if len(entry.Links) != 1 || entry.Links[0].URL != "https://www.elte.hu/en" {
		t.Fatalf("ссылки: %+v", entry.Links)
	}

	if _, err := NewStaticCatalog(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("отсутствующий файл должен давать ошибку")
	}
}
