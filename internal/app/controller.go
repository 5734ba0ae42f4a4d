package app

import "fmt"

// ==========================================
// НАВИГАЦИОННЫЙ КОНТРОЛЛЕР
// ==========================================

// NavRecorder — необязательный приемник событий навигации (реестр
// пользователей и журнал переходов в БД). Контроллер работает и без него.
type NavRecorder interface {
	UpsertUser(chatID int64, role, direction string)
	RecordTransition(chatID int64, state string)
}

// NavController — конечный автомат меню. Не знает ни про Telegram,
// ни про то, какой бэкенд у каталога.
type NavController struct {
	catalog  CatalogStore
	recorder NavRecorder
}

func NewNavController(catalog CatalogStore, recorder NavRecorder) *NavController {
	return &NavController{catalog: catalog, recorder: recorder}
}

// NavResult — итог применения действия: экран для отрисовки и, если
// что-то пошло не так, текст подсказки поверх него.
type NavResult struct {
	Screen  Screen
	Notice  string
	EnterAI bool
}

const (
	noticeNotFound  = "😔 Информация не найдена. Выберите другой пункт."
	noticeBadAction = "Не понимаю эту кнопку. Выберите пункт меню ниже."
)

// Apply применяет действие к сессии. Все мутации — под замком сессии;
// один чат обрабатывается строго последовательно.
func (nc *NavController) Apply(sess *SessionState, a Action) NavResult {
	var res NavResult
	sess.WithLock(func(s *SessionState) {
		res = nc.apply(s, a)
	})
	return res
}

func (nc *NavController) apply(s *SessionState, a Action) NavResult {
	switch a.Kind {
	case ActionSelectRole:
		s.Role = a.Role
		s.Mode = ModeMenu
		nc.forward(s, Screen{Kind: ScreenDirectionSelect})
		nc.recordUser(s)
		return NavResult{Screen: s.Current}

	case ActionSelectDirection:
		s.Direction = a.Direction
		nc.forward(s, Screen{Kind: ScreenDirectionOptions, Direction: a.Direction})
		nc.recordUser(s)
		return NavResult{Screen: s.Current}

	case ActionChooseCountry:
		nc.forward(s, Screen{Kind: ScreenCountrySelect})
		return NavResult{Screen: s.Current}

	case ActionShowByDirection:
		s.Direction = a.Direction
		nc.forward(s, Screen{Kind: ScreenDirectionResults, Direction: a.Direction})
		return NavResult{Screen: s.Current}

	case ActionSelectCountry:
		if _, ok := nc.catalog.Universities(a.Country); !ok {
			// Промах каталога: состояние и история не трогаются.
			return NavResult{Screen: s.Current, Notice: noticeNotFound}
		}
		s.Country = a.Country
		nc.forward(s, Screen{Kind: ScreenUniversityList, Country: a.Country})
		return NavResult{Screen: s.Current}

	case ActionSelectUniversity:
		if _, ok := nc.catalog.Entry(a.Country, a.University); !ok {
			return NavResult{Screen: s.Current, Notice: noticeNotFound}
		}
		s.Country = a.Country
		s.University = a.University
		s.Expanded = make(map[string]bool)
		nc.forward(s, Screen{Kind: ScreenUniversityDetail, Country: a.Country, University: a.University})
		return NavResult{Screen: s.Current}

	case ActionToggleSection:
		if s.Current.Kind != ScreenUniversityDetail {
			return NavResult{Screen: s.Current, Notice: noticeBadAction}
		}
		// Идемпотентный тоггл, истории не касается.
		if s.Expanded[a.Section] {
			delete(s.Expanded, a.Section)
		} else {
			s.Expanded[a.Section] = true
		}
		return NavResult{Screen: s.Current}

	case ActionBack:
		s.Mode = ModeMenu
		prev, ok := s.pop()
		if !ok {
			prev = Screen{Kind: ScreenRoleSelect}
		}
		s.Current = prev
		return NavResult{Screen: s.Current}

	case ActionOpenReference:
		nc.forward(s, Screen{Kind: ScreenReference})
		return NavResult{Screen: s.Current}

	case ActionReferenceTopic:
		nc.forward(s, Screen{Kind: ScreenReferenceTopic, Topic: a.Topic})
		return NavResult{Screen: s.Current}

	case ActionAIMode:
		s.Mode = ModeAI
		nc.forward(s, Screen{Kind: ScreenAIQuery})
		return NavResult{Screen: s.Current, EnterAI: true}

	default:
		return NavResult{Screen: s.Current, Notice: noticeBadAction}
	}
}

// forward — обычный переход вперед: текущий экран уходит в историю.
// Переход на самого себя (повторное нажатие всегда видимой кнопки
// reply-меню) — no-op: история не должна содержать текущий экран.
func (nc *NavController) forward(s *SessionState, next Screen) {
	if next == s.Current {
		return
	}
	s.push(s.Current)
	s.Current = next
	if nc.recorder != nil {
		nc.recorder.RecordTransition(s.ChatID, screenLabel(next))
	}
}

func (nc *NavController) recordUser(s *SessionState) {
	if nc.recorder != nil {
		nc.recorder.UpsertUser(s.ChatID, s.Role, s.Direction)
	}
}

func screenLabel(scr Screen) string {
	switch scr.Kind {
	case ScreenRoleSelect:
		return "role_selection"
	case ScreenDirectionSelect:
		return "direction_selection"
	case ScreenDirectionOptions:
		return "direction_options"
	case ScreenCountrySelect:
		return "country_selection"
	case ScreenUniversityList:
		return fmt.Sprintf("universities_list:%s", scr.Country)
	case ScreenDirectionResults:
		return fmt.Sprintf("universities_by_direction:%s", scr.Direction)
	case ScreenUniversityDetail:
		return fmt.Sprintf("university_view:%s:%s", scr.Country, scr.University)
	case ScreenReference:
		return "reference"
	case ScreenReferenceTopic:
		return fmt.Sprintf("reference:%s", scr.Topic)
	case ScreenAIQuery:
		return "ai_assistant"
	default:
		return "unknown"
	}
}
