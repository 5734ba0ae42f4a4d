package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	tele "gopkg.in/telebot.v3"
)

// ==========================================
// КОНФИГУРАЦИЯ
// ==========================================

type Config struct {
	Token         string  `json:"token"`
	OpenRouterKey string  `json:"openrouter_key"`
	BotAPIUrl     string  `json:"bot_api_url"`
	CatalogSource string  `json:"catalog_source"` // "json" | "db"
	APIAddr       string  `json:"api_addr"`
	AdminIDs      []int64 `json:"admin_ids"`
}

// ==========================================
// ГЛОБАЛЬНЫЕ ПЕРЕМЕННЫЕ (Общие для всех файлов)
// ==========================================

var (
	config         Config
	sessionManager *SessionManager
	statsManager   *StatsManager
	storeManager   *StoreManager // nil при catalog_source=json
	aiManager      *AIManager
	navController  *NavController
	renderer       *Renderer
	catalog        *switchableCatalog
)

// switchableCatalog позволяет подменить бэкенд каталога на лету (/reload).
type switchableCatalog struct {
	mu    sync.RWMutex
	inner CatalogStore
}

func (sc *switchableCatalog) Countries() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.inner.Countries()
}

func (sc *switchableCatalog) Universities(country string) ([]string, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.inner.Universities(country)
}

func (sc *switchableCatalog) Entry(country, university string) (*CatalogEntry, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.inner.Entry(country, university)
}

func swapCatalog(next CatalogStore) {
	catalog.mu.Lock()
	catalog.inner = next
	catalog.mu.Unlock()
}

// ==========================================
// MAIN
// ==========================================

func Run() {
	initAppLayout()
	InitLogger()
	defer CloseLogger()
	markStart()

	// .env — для локальной разработки; в проде переменные приходят из среды.
	_ = godotenv.Load()

	// 1. Загрузка конфигурации
	if err := loadJSON(configFilePath, &config); err != nil {
		log.Printf("⚠️ Файл %s не прочитан (%v), полагаемся на переменные среды.", configFilePath, err)
	}
	applyEnvOverrides(&config)
	if config.Token == "" {
		log.Fatalf("❌ Критическая ошибка: не задан токен бота (config.json или SWF_BOT_TOKEN)")
	}
	if config.CatalogSource == "" {
		config.CatalogSource = "json"
	}

	// 2. Каталог: JSON-файл или SQLite
	catalog = &switchableCatalog{}
	var recorder NavRecorder
	switch config.CatalogSource {
	case "db":
		storeManager = NewStoreManager(dbFilePath)
		if static, err := NewStaticCatalog(catalogFilePath); err == nil {
			if err := storeManager.SeedFromStatic(static); err != nil {
				log.Printf("⚠️ Ошибка наполнения БД: %v", err)
			}
		}
		catalog.inner = storeManager
		recorder = storeManager
		log.Println("✅ Каталог: SQLite.")
	default:
		static, err := NewStaticCatalog(catalogFilePath)
		if err != nil {
			log.Fatalf("❌ Критическая ошибка: каталог не загружен: %v", err)
		}
		catalog.inner = static
		log.Printf("✅ Каталог: %s. Стран: %d", catalogFilePath, len(static.Countries()))
	}

	// 3. Сессии, навигация, отрисовка
	sessionManager = NewSessionManager()
	navController = NewNavController(catalog, recorder)
	renderer = NewRenderer(catalog)

	// 4. Статистика
	statsManager = NewStatsManager(statsFilePath)
	log.Printf("✅ Статистика загружена. Сообщений: %d, запросов к ИИ: %d",
		statsManager.Data.TotalMessages, statsManager.Data.TotalAIQueries)

	// 5. ИИ-помощник (OpenRouter)
	aiManager = NewAIManager(config.OpenRouterKey)
	if config.OpenRouterKey == "" {
		log.Println("⚠️ Ключ OpenRouter не задан. Режим ИИ будет отвечать ошибкой.")
	} else {
		log.Println("✅ OpenRouter подключен.")
	}

	// 6. Настройки бота
	log.Println("🔄 Попытка подключения к Telegram API...")

	pref := tele.Settings{
		Token: config.Token,
		URL:   config.BotAPIUrl,
		Poller: &tele.LongPoller{
			Timeout: 10 * time.Second,
		},
		OnError: func(err error, c tele.Context) {
			log.Printf("❌ Ошибка в Bot Poller: %v", err)
			if c != nil {
				log.Printf("   -> В чате: %v", c.Chat().ID)
			}
		},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("❌ КРИТИЧЕСКАЯ ОШИБКА при создании бота (проверьте токен или доступ к API): %v", err)
	}

	// 7. Меню и хендлеры
	InitMenus()
	RegisterHandlers(b)

	// 8. Фоновые процессы
	if storeManager != nil {
		safeGo("scheduler", func() { StartScheduler(b, storeManager) })
		if config.APIAddr != "" {
			safeGo("api-server", func() { startAPIServer(config.APIAddr, storeManager) })
		}
	}
	safeGo("housekeeping", startHousekeeping)
	if addr := os.Getenv("SWF_HEALTH_ADDR"); addr != "" {
		safeGo("health-server", func() { startHealthServer(addr) })
	}

	log.Printf("✅ Соединение установлено! Бот: @%s (ID: %d)", b.Me.Username, b.Me.ID)
	if config.BotAPIUrl != "" {
		log.Printf("🌐 Работа через прокси: %s", config.BotAPIUrl)
	}

	// Сброс вебхука и зависших апдейтов перед long polling.
	log.Println("🧹 Сброс вебхука и удаление старых зависших сообщений...")
	if err := b.RemoveWebhook(true); err != nil {
		log.Printf("⚠️ Предупреждение: не удалось сбросить вебхук: %v", err)
	} else {
		log.Println("✅ Вебхук удален, очередь очищена. Бот готов к работе.")
	}

	fmt.Printf("🚀 Бот запущен. Каталог: %s. Admins: %d\n", config.CatalogSource, len(config.AdminIDs))

	safeGo("bot", func() { b.Start() })

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("⏹ Завершение работы...")
	b.Stop()
	statsManager.Save()
	if storeManager != nil {
		if err := storeManager.CloseDB(); err != nil {
			log.Printf("⚠️ Ошибка закрытия БД: %v", err)
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := os.Getenv("SWF_BOT_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("SWF_OPENROUTER_KEY"); v != "" {
		cfg.OpenRouterKey = v
	}
	if v := os.Getenv("SWF_BOT_API_URL"); v != "" {
		cfg.BotAPIUrl = v
	}
	if v := os.Getenv("SWF_CATALOG_SOURCE"); v != "" {
		cfg.CatalogSource = v
	}
	if v := os.Getenv("SWF_API_ADDR"); v != "" {
		cfg.APIAddr = v
	}
	if v := os.Getenv("SWF_ADMIN_IDS"); v != "" {
		var ids []int64
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				log.Printf("⚠️ SWF_ADMIN_IDS: пропущено значение %q", part)
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			cfg.AdminIDs = ids
		}
	}
}
