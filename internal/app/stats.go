package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	tele "gopkg.in/telebot.v3"
)

// ==========================================
// СТАТИСТИКА
// ==========================================

type StatsManager struct {
	FilePath string
	Data     GlobalStats
	Mu       sync.RWMutex
}

// GlobalStats — единая структура для всей статистики бота.
type GlobalStats struct {
	TotalMessages  int                 `json:"total_messages"`
	TotalCallbacks int                 `json:"total_callbacks"`
	TotalAIQueries int                 `json:"total_ai_queries"`
	AIFailures     int                 `json:"ai_failures"`
	Users          map[int64]*UserStat `json:"users"`
	ActivityLog    map[string]int      `json:"activity_log"` // "2026-09-01" -> 150

	LastUpdated time.Time `json:"last_updated"`
}

type UserStat struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	MsgCount  int    `json:"msg_count"`
	AIQueries int    `json:"ai_queries"`
}

func NewStatsManager(file string) *StatsManager {
	sm := &StatsManager{
		FilePath: file,
		Data: GlobalStats{
			Users:       make(map[int64]*UserStat),
			ActivityLog: make(map[string]int),
		},
	}
	sm.Load()
	return sm
}

// ==========================================
// ТРЕКИНГ
// ==========================================

func (sm *StatsManager) TrackMessage(c tele.Context) {
	sm.Mu.Lock()
	defer sm.Mu.Unlock()

	if c.Message() == nil || c.Sender() == nil {
		return
	}

	sm.Data.TotalMessages++
	sm.trackUser(c.Sender())

	today := time.Now().Format("2006-01-02")
	sm.Data.ActivityLog[today]++

	if sm.Data.TotalMessages%10 == 0 {
		sm.saveInternal()
	}
}

func (sm *StatsManager) TrackCallback(c tele.Context) {
	sm.Mu.Lock()
	defer sm.Mu.Unlock()

	if c.Sender() == nil {
		return
	}
	sm.Data.TotalCallbacks++
	sm.trackUser(c.Sender())

	today := time.Now().Format("2006-01-02")
	sm.Data.ActivityLog[today]++
}

func (sm *StatsManager) TrackAIQuery(chatID int64, failed bool) {
	sm.Mu.Lock()
	defer sm.Mu.Unlock()

	sm.Data.TotalAIQueries++
	if failed {
		sm.Data.AIFailures++
	}
	if u, ok := sm.Data.Users[chatID]; ok {
		u.AIQueries++
	}
	sm.saveInternal()
}

func (sm *StatsManager) trackUser(u *tele.User) {
	if _, ok := sm.Data.Users[u.ID]; !ok {
		sm.Data.Users[u.ID] = &UserStat{
			ID:       u.ID,
			Name:     u.FirstName,
			Username: u.Username,
		}
	}
	user := sm.Data.Users[u.ID]
	user.MsgCount++
	if u.Username != "" {
		user.Username = u.Username
	}
}

// ==========================================
// ВИЗУАЛИЗАЦИЯ И ОТЧЕТЫ
// ==========================================

// GenerateStatsImage — график активности за последние 14 дней.
func (sm *StatsManager) GenerateStatsImage() ([]byte, error) {
	sm.Mu.RLock()
	defer sm.Mu.RUnlock()

	var dates []time.Time
	var values []float64

	for i := 13; i >= 0; i-- {
		d := time.Now().AddDate(0, 0, -i)
		dateKey := d.Format("2006-01-02")
		dates = append(dates, d)
		values = append(values, float64(sm.Data.ActivityLog[dateKey]))
	}

	graph := chart.Chart{
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20}},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Активность",
				XValues: dates,
				YValues: values,
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 5.0, DotColor: chart.ColorWhite, DotWidth: 4.0},
			},
		},
		XAxis:  chart.XAxis{Name: "Дни", ValueFormatter: chart.TimeValueFormatterWithFormat("02 Jan")},
		YAxis:  chart.YAxis{Name: "Кол-во действий", ValueFormatter: func(v interface{}) string { return fmt.Sprintf("%.0f", v.(float64)) }},
		Height: 400,
		Width:  800,
	}

	buffer := bytes.NewBuffer([]byte{})
	err := graph.Render(chart.PNG, buffer)
	return buffer.Bytes(), err
}

func (sm *StatsManager) GetFormattedStatsText() string {
	sm.Mu.RLock()
	defer sm.Mu.RUnlock()

	type UserSorter struct{ *UserStat }
	var sortedUsers []UserSorter
	for _, u := range sm.Data.Users {
		sortedUsers = append(sortedUsers, UserSorter{u})
	}
	sort.Slice(sortedUsers, func(i, j int) bool { return sortedUsers[i].MsgCount > sortedUsers[j].MsgCount })

	text := fmt.Sprintf("📊 <b>ОБЩАЯ СТАТИСТИКА</b>\n\n"+
		"📨 Сообщений: <b>%d</b>\n"+
		"🔘 Нажатий кнопок: <b>%d</b>\n"+
		"🤖 Запросов к ИИ: <b>%d</b> (ошибок: %d)\n"+
		"👥 Пользователей: <b>%d</b>\n\n",
		sm.Data.TotalMessages, sm.Data.TotalCallbacks,
		sm.Data.TotalAIQueries, sm.Data.AIFailures, len(sm.Data.Users))

	text += "🏆 <b>ТОП-5 АКТИВНЫХ:</b>\n"
	limit := 5
	if len(sortedUsers) < limit {
		limit = len(sortedUsers)
	}
	for i := 0; i < limit; i++ {
		u := sortedUsers[i]
		name := u.Name
		if u.Username != "" {
			name = "@" + u.Username
		}
		// Имя приходит от пользователя и попадает в ModeHTML.
		text += fmt.Sprintf("%d. <b>%s</b>: %d сообщ. | %d ИИ\n", i+1, html.EscapeString(name), u.MsgCount, u.AIQueries)
	}

	return text
}

// ==========================================
// СОХРАНЕНИЕ / ЗАГРУЗКА
// ==========================================

func (sm *StatsManager) saveInternal() {
	sm.Data.LastUpdated = time.Now()
	if err := saveJSON(sm.FilePath, &sm.Data); err != nil {
		log.Printf("⚠️ Ошибка сохранения статистики: %v", err)
	}
}

func (sm *StatsManager) Save() {
	sm.Mu.Lock()
	defer sm.Mu.Unlock()
	sm.saveInternal()
}

func (sm *StatsManager) Load() {
	sm.Mu.Lock()
	defer sm.Mu.Unlock()
	file, err := os.ReadFile(sm.FilePath)
	if err == nil {
		json.Unmarshal(file, &sm.Data)
		if sm.Data.Users == nil {
			sm.Data.Users = make(map[int64]*UserStat)
		}
		if sm.Data.ActivityLog == nil {
			sm.Data.ActivityLog = make(map[string]int)
		}
	}
}
