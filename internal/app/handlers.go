package app

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v3"
)

// ==========================================
// МЕНЮ И КНОПКИ
// ==========================================

var (
	// --- МЕНЮ ПОЛЬЗОВАТЕЛЯ (Reply) ---
	userReplyMenu  = &tele.ReplyMarkup{ResizeKeyboard: true}
	btnMenuCatalog = userReplyMenu.Text("📚 Категория")
	btnMenuAI      = userReplyMenu.Text("💬 ИИ-помощник")
	btnMenuRef     = userReplyMenu.Text("🗂 Справочник")

	// Анти-спам для запросов к ИИ
	userLastReq   = make(map[int64]time.Time)
	userLastReqMu sync.Mutex
)

func InitMenus() {
	userReplyMenu.Reply(
		userReplyMenu.Row(btnMenuCatalog),
		userReplyMenu.Row(btnMenuAI, btnMenuRef),
	)
}

// ==========================================
// ОТПРАВКА ЭКРАНОВ
// ==========================================

// buildMarkup переводит кнопки рендера в inline-клавиатуру, по одной
// кнопке в ряд: названия университетов длинные.
func buildMarkup(buttons []RenderButton) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	var rows []tele.Row
	for _, b := range buttons {
		var btn tele.Btn
		if b.URL != "" {
			btn = m.URL(b.Label, b.URL)
		} else {
			btn = m.Data(b.Label, b.Data)
		}
		rows = append(rows, m.Row(btn))
	}
	m.Inline(rows...)
	return m
}

// sendScreen отрисовывает текущий экран сессии. edit=true редактирует
// сообщение под callback-ом, иначе шлет новое.
func sendScreen(c tele.Context, res NavResult, sess *SessionState, edit bool) error {
	rendered := renderer.Render(res.Screen, sess.Snapshot())
	text := rendered.Text
	if res.Notice != "" {
		text = res.Notice + "\n\n" + text
	}
	markup := buildMarkup(rendered.Buttons)
	if edit {
		return tryEdit(c, text, markup, tele.ModeHTML)
	}
	return c.Send(text, markup, tele.ModeHTML)
}

func tryEdit(c tele.Context, what interface{}, opts ...interface{}) error {
	err := c.Edit(what, opts...)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return c.Respond()
	}
	if err != nil {
		log.Printf("⚠️ Ошибка редактирования сообщения: %v", err)
	}
	return err
}

// ==========================================
// РЕГИСТРАЦИЯ ХЕНДЛЕРОВ
// ==========================================

func RegisterHandlers(b *tele.Bot) {
	b.Use(RecoverMiddleware())

	b.Handle("/start", func(c tele.Context) error {
		statsManager.TrackMessage(c)
		sess := sessionManager.Reset(c.Chat().ID)

		welcome := "👋 Привет! Я помогу тебе разобраться с поступлением за границу:\n\n" +
			"• подберу университеты и программы\n" +
			"• подскажу гранты, дедлайны и документы\n" +
			"• отвечу на вопросы с помощью ИИ\n\n" +
			"Начнем!"
		if err := c.Send(welcome, userReplyMenu); err != nil {
			return err
		}
		return sendScreen(c, NavResult{Screen: currentScreen(sess)}, sess, false)
	})

	b.Handle("/help", func(c tele.Context) error {
		statsManager.TrackMessage(c)
		return c.Send("Команды:\n"+
			"/start — начать сначала\n"+
			"/digest — вкл/выкл напоминания о дедлайнах\n\n"+
			"Кнопки снизу открывают каталог, ИИ-помощника и справочник.", userReplyMenu)
	})

	b.Handle("/digest", handleDigestToggle)

	b.Handle(&btnMenuCatalog, func(c tele.Context) error {
		statsManager.TrackMessage(c)
		sess := sessionManager.Reset(c.Chat().ID)
		return sendScreen(c, NavResult{Screen: currentScreen(sess)}, sess, false)
	})

	b.Handle(&btnMenuAI, func(c tele.Context) error {
		statsManager.TrackMessage(c)
		sess := sessionManager.Get(c.Chat().ID)
		res := navController.Apply(sess, Action{Kind: ActionAIMode})
		return sendScreen(c, res, sess, false)
	})

	b.Handle(&btnMenuRef, func(c tele.Context) error {
		statsManager.TrackMessage(c)
		sess := sessionManager.Get(c.Chat().ID)
		res := navController.Apply(sess, Action{Kind: ActionOpenReference})
		return sendScreen(c, res, sess, false)
	})

	b.Handle(tele.OnCallback, func(c tele.Context) error {
		statsManager.TrackCallback(c)
		defer c.Respond()

		// Кнопки создаются через m.Data(label, data) без полезной нагрузки,
		// поэтому callback несет "\f<data>" и иногда хвост "|".
		data := strings.TrimPrefix(c.Callback().Data, "\f")
		if i := strings.Index(data, "|"); i >= 0 {
			data = data[:i]
		}

		sess := sessionManager.Get(c.Chat().ID)
		action := ParseAction(data)
		res := navController.Apply(sess, action)
		return sendScreen(c, res, sess, true)
	})

	b.Handle(tele.OnText, handleText)

	registerAdminHandlers(b)
}

// ==========================================
// ТЕКСТ: РЕЖИМ ИИ
// ==========================================

func handleText(c tele.Context) error {
	statsManager.TrackMessage(c)
	sess := sessionManager.Get(c.Chat().ID)

	if modeOf(sess) != ModeAI {
		return c.Send("Выберите пункт меню ниже или нажмите «💬 ИИ-помощник», чтобы задать вопрос.", userReplyMenu)
	}

	chatID := c.Chat().ID
	if !allowAIRequest(chatID) {
		return c.Send("⏳ Подождите пару секунд перед следующим вопросом.")
	}

	prompt := strings.TrimSpace(c.Text())
	if prompt == "" {
		return nil
	}

	_ = c.Notify(tele.Typing)
	log.Printf("🤖 Вопрос к ИИ от %d: %s", chatID, shorten(prompt, 80))

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	answer, failed := aiManager.AskSafe(ctx, prompt, roleContextOf(sess))
	statsManager.TrackAIQuery(chatID, failed)
	if storeManager != nil {
		storeManager.LogAI(chatID, uuid.NewString(), prompt, answer, failed)
	}

	// Ошибка показывается как текст, режим ИИ не сбрасывается: пользователь
	// может повторить вопрос или выйти через "Назад".
	return c.Send(answer)
}

func modeOf(sess *SessionState) Mode {
	var m Mode
	sess.WithLock(func(s *SessionState) { m = s.Mode })
	return m
}

func currentScreen(sess *SessionState) Screen {
	var scr Screen
	sess.WithLock(func(s *SessionState) { scr = s.Current })
	return scr
}

// roleContextOf собирает контекст для системного промпта из того, что
// пользователь уже выбрал в меню.
func roleContextOf(sess *SessionState) string {
	var parts []string
	sess.WithLock(func(s *SessionState) {
		if name := roleNames[s.Role]; name != "" {
			parts = append(parts, "категория: "+name)
		}
		if name := directionNames[s.Direction]; name != "" {
			parts = append(parts, "направление: "+name)
		}
		if s.Country != "" {
			parts = append(parts, "страна: "+s.Country)
		}
	})
	return strings.Join(parts, ", ")
}

func allowAIRequest(chatID int64) bool {
	userLastReqMu.Lock()
	defer userLastReqMu.Unlock()
	if last, ok := userLastReq[chatID]; ok && time.Since(last) < 3*time.Second {
		return false
	}
	userLastReq[chatID] = time.Now()
	return true
}

// ==========================================
// ПОДПИСКА НА ДАЙДЖЕСТ
// ==========================================

func handleDigestToggle(c tele.Context) error {
	statsManager.TrackMessage(c)
	if storeManager == nil {
		return c.Send("Напоминания о дедлайнах недоступны в этой конфигурации.")
	}
	chatID := c.Chat().ID

	var user BotUser
	if err := storeManager.DB.First(&user, "id = ?", chatID).Error; err != nil {
		user = BotUser{ID: chatID}
		storeManager.DB.Create(&user)
	}
	active := !user.DigestActive
	if err := storeManager.SetDigestActive(chatID, active); err != nil {
		log.Printf("⚠️ Не удалось переключить дайджест для %d: %v", chatID, err)
		return c.Send("Не получилось, попробуйте еще раз.")
	}
	if active {
		return c.Send("🔔 Напоминания о дедлайнах включены. Отключить: /digest")
	}
	return c.Send("🔕 Напоминания о дедлайнах выключены.")
}
