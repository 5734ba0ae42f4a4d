package app

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ==========================================
// КАТАЛОГ (страна -> университет -> карточка)
// ==========================================

// Фиксированный порядок секций карточки. От него зависит и порядок кнопок,
// и порядок раскрытых блоков в тексте.
var sectionOrder = []string{"documents", "scholarships", "deadlines", "process", "programs"}

var sectionTitles = map[string]string{
	"documents":    "Документы",
	"scholarships": "Стипендии",
	"deadlines":    "Дедлайны",
	"process":      "Поступление",
	"programs":     "Программы",
}

type CatalogLink struct {
	Label string
	URL   string
}

type CatalogEntry struct {
	Country  string
	Name     string
	Card     string
	Sections map[string]string // подмножество sectionOrder
	Links    []CatalogLink     // отсортированы по названию
}

// CatalogStore — единый контракт для обоих бэкендов (JSON-файл и SQLite).
// Промах — это (nil|"", false), а не ошибка: наверху рисуется экран
// "недоступно", диалог не падает.
type CatalogStore interface {
	Countries() []string
	Universities(country string) ([]string, bool)
	Entry(country, university string) (*CatalogEntry, bool)
}

// ==========================================
// НАПРАВЛЕНИЯ
// ==========================================

var directionNames = map[string]string{
	"business": "Бизнес / Финансы",
	"it":       "IT / Инженерия / Наука",
	"medicine": "Медицина / Биология / Здоровье",
	"art":      "Искусство / Дизайн / Медиа",
}

var directionOrder = []string{"business", "it", "medicine", "art"}

var directionKeywords = map[string][]string{
	"business": {"бизнес", "финанс", "менеджмент", "экономик", "маркетинг", "предпринимательство", "business", "finance", "management", "economics"},
	"it":       {"информацион", "компьютер", "программир", "it", "инженер", "техническ", "наука", "технолог", "computer", "engineering", "technology", "science"},
	"medicine": {"медицин", "биолог", "здоровь", "фармацевт", "хирург", "врач", "анатом", "medicine", "biology", "health", "medical"},
	"art":      {"искусств", "дизайн", "медиа", "арт", "творчеств", "худож", "музык", "кино", "art", "design", "media", "creative"},
}

// entryMatchesDirection: подстрочное совпадение без учета регистра,
// ИЛИ по стеммам, ИЛИ по двум текстовым полям (карточка и программы).
func entryMatchesDirection(e *CatalogEntry, directionKey string) bool {
	if e == nil {
		return false
	}
	stems, ok := directionKeywords[directionKey]
	if !ok {
		return false
	}
	card := strings.ToLower(e.Card)
	programs := strings.ToLower(e.Sections["programs"])
	for _, stem := range stems {
		if strings.Contains(card, stem) || strings.Contains(programs, stem) {
			return true
		}
	}
	return false
}

// FindByDirection — линейный проход по всему каталогу. Масштаб данных
// (десятки записей) индекса не требует.
func FindByDirection(store CatalogStore, directionKey string) []*CatalogEntry {
	var found []*CatalogEntry
	for _, country := range store.Countries() {
		unis, ok := store.Universities(country)
		if !ok {
			continue
		}
		for _, uni := range unis {
			entry, ok := store.Entry(country, uni)
			if !ok {
				continue
			}
			if entryMatchesDirection(entry, directionKey) {
				found = append(found, entry)
			}
		}
	}
	return found
}

// ==========================================
// СТАТИЧЕСКИЙ КАТАЛОГ (universities.json)
// ==========================================

type staticUniversity struct {
	Card         string            `json:"card"`
	Documents    string            `json:"documents"`
	Scholarships string            `json:"scholarships"`
	Deadlines    string            `json:"deadlines"`
	Process      string            `json:"process"`
	Programs     string            `json:"programs"`
	Links        map[string]string `json:"links"`
}

type StaticCatalog struct {
	countries []string
	entries   map[string]map[string]*CatalogEntry
	order     map[string][]string
}

func NewStaticCatalog(path string) (*StaticCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("каталог %s: %w", path, err)
	}
	var doc map[string]map[string]staticUniversity
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("каталог %s: %w", path, err)
	}
	return buildStaticCatalog(doc), nil
}

func buildStaticCatalog(doc map[string]map[string]staticUniversity) *StaticCatalog {
	sc := &StaticCatalog{
		entries: make(map[string]map[string]*CatalogEntry),
		order:   make(map[string][]string),
	}
	for country, unis := range doc {
		sc.countries = append(sc.countries, country)
		sc.entries[country] = make(map[string]*CatalogEntry)
		for name, u := range unis {
			entry := &CatalogEntry{
				Country:  country,
				Name:     name,
				Card:     u.Card,
				Sections: make(map[string]string),
			}
			put := func(key, val string) {
				if strings.TrimSpace(val) != "" {
					entry.Sections[key] = val
				}
			}
			put("documents", u.Documents)
			put("scholarships", u.Scholarships)
			put("deadlines", u.Deadlines)
			put("process", u.Process)
			put("programs", u.Programs)
			for label, url := range u.Links {
				entry.Links = append(entry.Links, CatalogLink{Label: label, URL: url})
			}
			sort.Slice(entry.Links, func(i, j int) bool { return entry.Links[i].Label < entry.Links[j].Label })
			sc.entries[country][name] = entry
			sc.order[country] = append(sc.order[country], name)
		}
		sort.Strings(sc.order[country])
	}
	sort.Strings(sc.countries)
	return sc
}

func (sc *StaticCatalog) Countries() []string {
	out := make([]string, len(sc.countries))
	copy(out, sc.countries)
	return out
}

func (sc *StaticCatalog) Universities(country string) ([]string, bool) {
	names, ok := sc.order[country]
	if !ok {
		return nil, false
	}
	out := make([]string, len(names))
	copy(out, names)
	return out, true
}

func (sc *StaticCatalog) Entry(country, university string) (*CatalogEntry, bool) {
	unis, ok := sc.entries[country]
	if !ok {
		return nil, false
	}
	entry, ok := unis[university]
	return entry, ok
}
