package app

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ==========================================
// РЕЛЯЦИОННАЯ СХЕМА
// ==========================================

type Country struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex" json:"name"`
}

type University struct {
	gorm.Model
	CountryID    uint              `gorm:"index" json:"country_id"`
	Name         string            `gorm:"index" json:"name"`
	Card         string            `json:"card"`
	Website      string            `json:"website"`
	Documents    string            `json:"documents"`
	Scholarships string            `json:"scholarships"`
	Deadlines    string            `json:"deadlines"`
	Process      string            `json:"process"`
	Links        map[string]string `gorm:"serializer:json" json:"links"`
}

type Program struct {
	gorm.Model
	UniversityID uint      `gorm:"index" json:"university_id"`
	Name         string    `json:"name"`
	Degree       string    `json:"degree"`
	Language     string    `json:"language"`
	Price        string    `json:"price"`
	Deadline     time.Time `json:"deadline"`
}

type Scholarship struct {
	gorm.Model
	UniversityID uint   `gorm:"index" json:"university_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
}

type BotUser struct {
	ID           int64 `gorm:"primaryKey" json:"chat_id"`
	Role         string
	Direction    string
	DigestActive bool `gorm:"default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type NavigationLog struct {
	gorm.Model
	ChatID int64 `gorm:"index"`
	State  string
}

type AiLog struct {
	gorm.Model
	ChatID    int64  `gorm:"index" json:"chat_id"`
	RequestID string `json:"request_id"`
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
	Failed    bool   `json:"failed"`
}

type Feedback struct {
	gorm.Model
	PublicID string `gorm:"uniqueIndex" json:"public_id"`
	ChatID   int64  `json:"chat_id"`
	Text     string `json:"text"`
	Rating   int    `json:"rating"`
}

type Survey struct {
	gorm.Model
	Title    string `json:"title"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

type SurveyQuestion struct {
	gorm.Model
	SurveyID uint   `gorm:"index" json:"survey_id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

type SurveyAnswer struct {
	gorm.Model
	QuestionID uint   `gorm:"index" json:"question_id"`
	ChatID     int64  `json:"chat_id"`
	Text       string `json:"text"`
}

type BotSettings struct {
	ID            uint   `gorm:"primaryKey"`
	DigestActive  bool   `gorm:"default:false"`
	DigestTime    string `gorm:"default:'09:00'"`
	DigestLastRun time.Time
}

// ==========================================
// МЕНЕДЖЕР ХРАНИЛИЩА
// ==========================================

type StoreManager struct {
	DB       *gorm.DB
	FilePath string
	Mu       sync.RWMutex

	countryCache     []string
	countryCacheTime time.Time
}

func NewStoreManager(file string) *StoreManager {
	sm := &StoreManager{FilePath: file}
	sm.Connect()
	return sm
}

func (sm *StoreManager) Connect() {
	sm.Mu.Lock()
	defer sm.Mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(sm.FilePath), 0755); err != nil {
		log.Fatalf("❌ Ошибка создания директории БД: %v", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)", sm.FilePath)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true,
	})
	if err != nil {
		log.Fatalf("❌ Ошибка БД: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(2 * time.Hour)

	if err := db.AutoMigrate(
		&Country{}, &University{}, &Program{}, &Scholarship{},
		&BotUser{}, &NavigationLog{}, &AiLog{}, &Feedback{},
		&Survey{}, &SurveyQuestion{}, &SurveyAnswer{}, &BotSettings{},
	); err != nil {
		log.Printf("⚠️ Ошибка AutoMigrate: %v", err)
	}

	var settings BotSettings
	if result := db.First(&settings, 1); result.Error != nil {
		db.Create(&BotSettings{ID: 1, DigestTime: "09:00", DigestActive: false})
	}

	sm.DB = db
	log.Println("🔌 БД подключена (WAL).")
}

func (sm *StoreManager) CloseDB() error {
	sm.Mu.Lock()
	defer sm.Mu.Unlock()
	if sm.DB == nil {
		return nil
	}
	sqlDB, err := sm.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (sm *StoreManager) Vacuum() error {
	sm.Mu.Lock()
	defer sm.Mu.Unlock()
	return sm.DB.Exec("VACUUM").Error
}

// ==========================================
// НАЧАЛЬНОЕ НАПОЛНЕНИЕ ИЗ universities.json
// ==========================================

// SeedFromStatic переливает статический каталог в пустую БД. Повторный
// запуск ничего не делает: сидируем только чистую базу.
func (sm *StoreManager) SeedFromStatic(sc *StaticCatalog) error {
	var count int64
	sm.DB.Model(&Country{}).Count(&count)
	if count > 0 {
		return nil
	}
	log.Println("🌱 БД пуста, наполняем из universities.json...")

	for _, countryName := range sc.Countries() {
		country := Country{Name: countryName}
		if err := sm.DB.Create(&country).Error; err != nil {
			return err
		}
		unis, _ := sc.Universities(countryName)
		for _, uniName := range unis {
			entry, ok := sc.Entry(countryName, uniName)
			if !ok {
				continue
			}
			links := make(map[string]string, len(entry.Links))
			website := ""
			for _, l := range entry.Links {
				links[l.Label] = l.URL
				if website == "" {
					website = l.URL
				}
			}
			uni := University{
				CountryID:    country.ID,
				Name:         entry.Name,
				Card:         entry.Card,
				Website:      website,
				Documents:    entry.Sections["documents"],
				Scholarships: entry.Sections["scholarships"],
				Deadlines:    entry.Sections["deadlines"],
				Process:      entry.Sections["process"],
				Links:        links,
			}
			if err := sm.DB.Create(&uni).Error; err != nil {
				return err
			}
			// Текст программ из статики раскладываем одной строкой-программой;
			// нормальные строки появляются через REST или ручное наполнение.
			if progText := entry.Sections["programs"]; strings.TrimSpace(progText) != "" {
				sm.DB.Create(&Program{UniversityID: uni.ID, Name: progText, Degree: "—", Language: "—", Price: "—"})
			}
		}
	}
	log.Println("✅ Наполнение БД завершено.")
	return nil
}

// ==========================================
// РЕАЛИЗАЦИЯ CatalogStore ПОВЕРХ БД
// ==========================================

func (sm *StoreManager) Countries() []string {
	sm.Mu.RLock()
	if time.Since(sm.countryCacheTime) < 5*time.Minute && sm.countryCache != nil {
		out := make([]string, len(sm.countryCache))
		copy(out, sm.countryCache)
		sm.Mu.RUnlock()
		return out
	}
	sm.Mu.RUnlock()

	var names []string
	sm.DB.Model(&Country{}).Order("name").Pluck("name", &names)

	sm.Mu.Lock()
	sm.countryCache = names
	sm.countryCacheTime = time.Now()
	sm.Mu.Unlock()

	out := make([]string, len(names))
	copy(out, names)
	return out
}

func (sm *StoreManager) Universities(countryName string) ([]string, bool) {
	var country Country
	if err := sm.DB.Where("name = ?", countryName).First(&country).Error; err != nil {
		return nil, false
	}
	var names []string
	sm.DB.Model(&University{}).Where("country_id = ?", country.ID).Order("name").Pluck("name", &names)
	return names, true
}

func (sm *StoreManager) Entry(countryName, universityName string) (*CatalogEntry, bool) {
	var country Country
	if err := sm.DB.Where("name = ?", countryName).First(&country).Error; err != nil {
		return nil, false
	}
	var uni University
	if err := sm.DB.Where("country_id = ? AND name = ?", country.ID, universityName).First(&uni).Error; err != nil {
		return nil, false
	}

	entry := &CatalogEntry{
		Country:  countryName,
		Name:     uni.Name,
		Card:     uni.Card,
		Sections: make(map[string]string),
	}
	put := func(key, val string) {
		if strings.TrimSpace(val) != "" {
			entry.Sections[key] = val
		}
	}
	put("documents", uni.Documents)
	put("scholarships", uni.Scholarships)
	put("deadlines", uni.Deadlines)
	put("process", uni.Process)

	var programs []Program
	sm.DB.Where("university_id = ?", uni.ID).Order("name").Find(&programs)
	put("programs", formatPrograms(programs))

	for label, url := range uni.Links {
		entry.Links = append(entry.Links, CatalogLink{Label: label, URL: url})
	}
	sort.Slice(entry.Links, func(i, j int) bool { return entry.Links[i].Label < entry.Links[j].Label })

	return entry, true
}

func formatPrograms(programs []Program) string {
	if len(programs) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("📚 Программы университета:\n\n")
	for _, p := range programs {
		fmt.Fprintf(&sb, "• %s (%s)\n  Язык: %s\n  Стоимость: %s\n\n", p.Name, p.Degree, p.Language, p.Price)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ==========================================
// РЕЕСТР ПОЛЬЗОВАТЕЛЕЙ И ЖУРНАЛ ПЕРЕХОДОВ
// ==========================================

// UpsertUser пишет в фоне: навигация не должна ждать диск.
func (sm *StoreManager) UpsertUser(chatID int64, role, direction string) {
	safeGo("upsert-user", func() {
		var user BotUser
		if err := sm.DB.First(&user, "id = ?", chatID).Error; err != nil {
			user = BotUser{ID: chatID, Role: role, Direction: direction}
			if err := sm.DB.Create(&user).Error; err != nil {
				log.Printf("⚠️ Не удалось сохранить пользователя %d: %v", chatID, err)
			}
			return
		}
		user.Role = role
		user.Direction = direction
		if err := sm.DB.Save(&user).Error; err != nil {
			log.Printf("⚠️ Не удалось обновить пользователя %d: %v", chatID, err)
		}
	})
}

func (sm *StoreManager) RecordTransition(chatID int64, state string) {
	safeGo("nav-log", func() {
		if err := sm.DB.Create(&NavigationLog{ChatID: chatID, State: state}).Error; err != nil {
			log.Printf("⚠️ Не удалось записать переход %d -> %s: %v", chatID, state, err)
		}
	})
}

func (sm *StoreManager) LogAI(chatID int64, requestID, prompt, response string, failed bool) {
	safeGo("ai-log", func() {
		rec := AiLog{ChatID: chatID, RequestID: requestID, Prompt: prompt, Response: response, Failed: failed}
		if err := sm.DB.Create(&rec).Error; err != nil {
			log.Printf("⚠️ Не удалось записать AI-лог: %v", err)
		}
	})
}

// ==========================================
// НАСТРОЙКИ
// ==========================================

func (sm *StoreManager) GetSettings() (*BotSettings, error) {
	var settings BotSettings
	if err := sm.DB.First(&settings, 1).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (sm *StoreManager) UpdateSettings(settings *BotSettings) error {
	return sm.DB.Save(settings).Error
}

// ==========================================
// ВЫБОРКИ ДЛЯ REST И РАССЫЛКИ
// ==========================================

func (sm *StoreManager) ListCountries() []Country {
	var countries []Country
	sm.DB.Order("name").Find(&countries)
	return countries
}

func (sm *StoreManager) UniversitiesByCountryID(countryID uint) []University {
	var unis []University
	sm.DB.Where("country_id = ?", countryID).Order("name").Find(&unis)
	return unis
}

// SearchUniversities фильтрует по подстроке в имени/карточке, стране и
// направлению. Пустые параметры не ограничивают выборку.
func (sm *StoreManager) SearchUniversities(q, countryName, directionKey string) []University {
	tx := sm.DB.Model(&University{}).Order("name")
	if strings.TrimSpace(countryName) != "" {
		var country Country
		if err := sm.DB.Where("name = ?", countryName).First(&country).Error; err != nil {
			return nil
		}
		tx = tx.Where("country_id = ?", country.ID)
	}
	if strings.TrimSpace(q) != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("lower(name) LIKE ? OR lower(card) LIKE ?", like, like)
	}
	var unis []University
	tx.Find(&unis)

	if directionKey == "" {
		return unis
	}
	stems, ok := directionKeywords[directionKey]
	if !ok {
		return nil
	}
	var filtered []University
	for _, u := range unis {
		var programs []Program
		sm.DB.Where("university_id = ?", u.ID).Find(&programs)
		card := strings.ToLower(u.Card)
		progText := strings.ToLower(formatPrograms(programs))
		for _, stem := range stems {
			if strings.Contains(card, stem) || strings.Contains(progText, stem) {
				filtered = append(filtered, u)
				break
			}
		}
	}
	return filtered
}

func (sm *StoreManager) GetUniversity(id uint) (*University, bool) {
	var uni University
	if err := sm.DB.First(&uni, id).Error; err != nil {
		return nil, false
	}
	return &uni, true
}

func (sm *StoreManager) ProgramsByCountry(countryName string) []Program {
	var programs []Program
	tx := sm.DB.Model(&Program{}).Order("deadline")
	if strings.TrimSpace(countryName) != "" {
		tx = tx.Joins("JOIN universities ON universities.id = programs.university_id").
			Joins("JOIN countries ON countries.id = universities.country_id").
			Where("countries.name = ?", countryName)
	}
	tx.Find(&programs)
	return programs
}

// UpcomingPrograms — программы с дедлайном в ближайшие days дней.
func (sm *StoreManager) UpcomingPrograms(days int) []Program {
	now := time.Now()
	var programs []Program
	sm.DB.Where("deadline > ? AND deadline <= ?", now, now.AddDate(0, 0, days)).
		Order("deadline").Find(&programs)
	return programs
}

func (sm *StoreManager) ListScholarships() []Scholarship {
	var list []Scholarship
	sm.DB.Order("name").Find(&list)
	return list
}

func (sm *StoreManager) CreateFeedback(fb *Feedback) error {
	return sm.DB.Create(fb).Error
}

func (sm *StoreManager) ListFeedback(limit int) []Feedback {
	if limit <= 0 {
		limit = 50
	}
	var list []Feedback
	sm.DB.Order("created_at desc").Limit(limit).Find(&list)
	return list
}

func (sm *StoreManager) ListSurveys() []Survey {
	var list []Survey
	sm.DB.Order("created_at desc").Find(&list)
	return list
}

func (sm *StoreManager) SurveyQuestions(surveyID uint) []SurveyQuestion {
	var list []SurveyQuestion
	sm.DB.Where("survey_id = ?", surveyID).Order("position").Find(&list)
	return list
}

func (sm *StoreManager) AnswersByQuestion(questionID uint) []SurveyAnswer {
	var list []SurveyAnswer
	sm.DB.Where("question_id = ?", questionID).Order("created_at").Find(&list)
	return list
}

func (sm *StoreManager) CreateAnswer(a *SurveyAnswer) error {
	return sm.DB.Create(a).Error
}

func (sm *StoreManager) ListAiLogs(limit int) []AiLog {
	if limit <= 0 {
		limit = 50
	}
	var list []AiLog
	sm.DB.Order("created_at desc").Limit(limit).Find(&list)
	return list
}

func (sm *StoreManager) DigestRecipients() []int64 {
	var ids []int64
	sm.DB.Model(&BotUser{}).Where("digest_active = ?", true).Pluck("id", &ids)
	return ids
}

func (sm *StoreManager) SetDigestActive(chatID int64, active bool) error {
	return sm.DB.Model(&BotUser{}).Where("id = ?", chatID).Update("digest_active", active).Error
}

// DashboardCounts — агрегат для /api/dashboard-stats.
func (sm *StoreManager) DashboardCounts() map[string]int64 {
	counts := make(map[string]int64)
	count := func(key string, model any) {
		var n int64
		sm.DB.Model(model).Count(&n)
		counts[key] = n
	}
	count("countries", &Country{})
	count("universities", &University{})
	count("programs", &Program{})
	count("scholarships", &Scholarship{})
	count("users", &BotUser{})
	count("ai_logs", &AiLog{})
	count("feedback", &Feedback{})
	count("surveys", &Survey{})

	var weekNav int64
	weekAgo := time.Now().AddDate(0, 0, -7)
	sm.DB.Model(&NavigationLog{}).Where("created_at >= ?", weekAgo).Count(&weekNav)
	counts["transitions_7d"] = weekNav
	return counts
}
