package app

import (
	"fmt"
	"html"
	"math/rand"
	"strings"
)

// ==========================================
// ОТРИСОВКА ЭКРАНОВ
// ==========================================

type RenderButton struct {
	Label string
	Data  string // callback-данные; пусто для URL-кнопок
	URL   string
}

type RenderedScreen struct {
	Text    string
	Buttons []RenderButton
}

// RenderState — снимок сессии для отрисовки. Снимок, а не указатель:
// рендер обязан быть чистой функцией своих входов.
type RenderState struct {
	Role      string
	Direction string
	Country   string
	Expanded  map[string]bool
}

// Snapshot снимает копию полей, нужных рендеру.
func (s *SessionState) Snapshot() RenderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	expanded := make(map[string]bool, len(s.Expanded))
	for k, v := range s.Expanded {
		expanded[k] = v
	}
	return RenderState{Role: s.Role, Direction: s.Direction, Country: s.Country, Expanded: expanded}
}

// Renderer — чистая функция (экран, снимок сессии, каталог) -> текст и
// кнопки. Единственная недетерминированность — "университет дня" в
// справочнике, и она изолирована за Pick ради тестов.
type Renderer struct {
	Catalog CatalogStore
	Pick    func(n int) int
}

func NewRenderer(catalog CatalogStore) *Renderer {
	return &Renderer{Catalog: catalog, Pick: rand.Intn}
}

var roleNames = map[string]string{
	"school":  "Школьник",
	"student": "Студент колледжа",
	"gap":     "Gap Year",
}

func (r *Renderer) Render(scr Screen, st RenderState) RenderedScreen {
	switch scr.Kind {
	case ScreenRoleSelect:
		return r.renderRoleSelect()
	case ScreenDirectionSelect:
		return r.renderDirectionSelect(st)
	case ScreenDirectionOptions:
		return r.renderDirectionOptions(scr)
	case ScreenCountrySelect:
		return r.renderCountrySelect()
	case ScreenUniversityList:
		return r.renderUniversityList(scr)
	case ScreenDirectionResults:
		return r.renderDirectionResults(scr)
	case ScreenUniversityDetail:
		return r.renderUniversityDetail(scr, st)
	case ScreenReference:
		return r.renderReference()
	case ScreenReferenceTopic:
		return r.renderReferenceTopic(scr)
	case ScreenAIQuery:
		return r.renderAIQuery(st)
	default:
		return withBack(RenderedScreen{Text: "Экран недоступен."})
	}
}

func withBack(rs RenderedScreen) RenderedScreen {
	rs.Buttons = append(rs.Buttons, RenderButton{Label: "← Назад", Data: "back"})
	return rs
}

func (r *Renderer) renderRoleSelect() RenderedScreen {
	// Единственный экран без кнопки "Назад".
	return RenderedScreen{
		Text: "👇 Выберите вашу категорию:",
		Buttons: []RenderButton{
			{Label: "Школьник", Data: "role_school"},
			{Label: "Студент колледжа", Data: "role_student"},
			{Label: "Gap Year", Data: "role_gap"},
		},
	}
}

func (r *Renderer) renderDirectionSelect(st RenderState) RenderedScreen {
	roleName := roleNames[st.Role]
	if roleName == "" {
		roleName = "пользователь"
	}
	rs := RenderedScreen{
		Text: fmt.Sprintf("Ты выбрал категорию «%s».\n\n"+
			"🎓 Я могу помочь тебе:\n\n"+
			"• Найти университеты и программы для поступления\n"+
			"• Узнать доступные гранты и стипендии\n"+
			"• Проверить дедлайны подачи\n"+
			"• Посмотреть список необходимых документов\n"+
			"• Получить рекомендации с помощью ИИ\n\n"+
			"Выбери направление, чтобы продолжить:", roleName),
	}
	for _, key := range directionOrder {
		rs.Buttons = append(rs.Buttons, RenderButton{Label: directionNames[key], Data: "direction_" + key})
	}
	return withBack(rs)
}

func (r *Renderer) renderDirectionOptions(scr Screen) RenderedScreen {
	name := directionNames[scr.Direction]
	rs := RenderedScreen{
		Text: fmt.Sprintf("🎯 Вы выбрали направление: %s\n\n"+
			"Теперь вы можете выбрать страну или сразу посмотреть университеты по этому направлению:", name),
		Buttons: []RenderButton{
			{Label: "Выбрать страну", Data: "choose_country"},
			{Label: "Показать университеты по направлению", Data: "show_unis_by_direction_" + scr.Direction},
		},
	}
	return withBack(rs)
}

func (r *Renderer) renderCountrySelect() RenderedScreen {
	rs := RenderedScreen{Text: "Выберите страну:"}
	for _, c := range r.Catalog.Countries() {
		rs.Buttons = append(rs.Buttons, RenderButton{Label: c, Data: "country_" + c})
	}
	return withBack(rs)
}

func (r *Renderer) renderUniversityList(scr Screen) RenderedScreen {
	unis, ok := r.Catalog.Universities(scr.Country)
	if !ok || len(unis) == 0 {
		return withBack(RenderedScreen{Text: "Университеты для этой страны пока не добавлены."})
	}
	rs := RenderedScreen{Text: fmt.Sprintf("Выберите университет в %s:", scr.Country)}
	for _, name := range unis {
		rs.Buttons = append(rs.Buttons, RenderButton{
			Label: name,
			Data:  fmt.Sprintf("uni_%s_%s", scr.Country, name),
		})
	}
	return withBack(rs)
}

func (r *Renderer) renderDirectionResults(scr Screen) RenderedScreen {
	name := directionNames[scr.Direction]
	found := FindByDirection(r.Catalog, scr.Direction)
	if len(found) == 0 {
		return withBack(RenderedScreen{
			Text: fmt.Sprintf("😔 По направлению «%s» университеты не найдены.\n"+
				"Попробуйте выбрать другую страну или направление.", name),
		})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏛️ Университеты по направлению «%s»:\n\n", name)
	for i, e := range found {
		if i >= 10 {
			fmt.Fprintf(&sb, "\n... и еще %d университетов", len(found)-10)
			break
		}
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, e.Name, e.Country)
	}

	rs := RenderedScreen{Text: sb.String()}
	for i, e := range found {
		if i >= 5 {
			break
		}
		rs.Buttons = append(rs.Buttons, RenderButton{
			Label: fmt.Sprintf("%s (%s)", e.Name, e.Country),
			Data:  fmt.Sprintf("uni_%s_%s", e.Country, e.Name),
		})
	}
	rs.Buttons = append(rs.Buttons, RenderButton{Label: "Выбрать страну", Data: "choose_country"})
	return withBack(rs)
}

func (r *Renderer) renderUniversityDetail(scr Screen, st RenderState) RenderedScreen {
	entry, ok := r.Catalog.Entry(scr.Country, scr.University)
	if !ok {
		return withBack(RenderedScreen{Text: "Информация об университете не найдена."})
	}

	var sb strings.Builder
	sb.WriteString(html.EscapeString(entry.Card))
	// Раскрытые секции идут в фиксированном порядке; свернутые в текст
	// не попадают, только в кнопки.
	for _, sec := range sectionOrder {
		text, has := entry.Sections[sec]
		if !has || !st.Expanded[sec] {
			continue
		}
		fmt.Fprintf(&sb, "\n\n<b>%s:</b>\n%s", sectionTitles[sec], html.EscapeString(text))
	}

	rs := RenderedScreen{Text: sb.String()}
	for _, sec := range sectionOrder {
		if _, has := entry.Sections[sec]; !has {
			continue
		}
		label := sectionTitles[sec]
		if st.Expanded[sec] {
			label = "✅ " + label
		}
		rs.Buttons = append(rs.Buttons, RenderButton{Label: label, Data: "uni_section_" + sec})
	}
	for _, link := range entry.Links {
		rs.Buttons = append(rs.Buttons, RenderButton{Label: link.Label, URL: link.URL})
	}
	return withBack(rs)
}

func (r *Renderer) renderReference() RenderedScreen {
	rs := RenderedScreen{
		Text: "📚 Справочник:\n\nЗдесь вы можете найти информацию по различным аспектам поступления:",
		Buttons: []RenderButton{
			{Label: "Направления", Data: "ref_directions"},
			{Label: "Страны", Data: "ref_countries"},
			{Label: "Университеты", Data: "ref_universities"},
			{Label: "Гранты", Data: "ref_grants"},
			{Label: "Документы и дедлайны", Data: "ref_documents"},
		},
	}
	return withBack(rs)
}

var referenceTexts = map[string]string{
	"directions": "🎯 Направления:\n\n• Бизнес / Финансы\n• IT / Инженерия / Наука\n• Медицина / Биология / Здоровье\n• Искусство / Дизайн / Медиа",
	"countries":  "🌍 Страны:\n\nДоступные для поступления страны с университетами в нашей базе данных.",
	"grants":     "💰 Гранты:\n\nИнформация о доступных стипендиях и грантах для международных студентов.",
	"documents":  "📄 Документы и дедлайны:\n\nСписок необходимых документов и сроки подачи заявок.",
}

func (r *Renderer) renderReferenceTopic(scr Screen) RenderedScreen {
	if scr.Topic == "universities" {
		return withBack(RenderedScreen{Text: r.featuredUniversityText()})
	}
	text, ok := referenceTexts[scr.Topic]
	if !ok {
		text = "Информация не найдена"
	}
	return withBack(RenderedScreen{Text: text})
}

// featuredUniversityText — "университет дня", единственное место со
// случайностью.
func (r *Renderer) featuredUniversityText() string {
	var all []*CatalogEntry
	for _, c := range r.Catalog.Countries() {
		unis, ok := r.Catalog.Universities(c)
		if !ok {
			continue
		}
		for _, u := range unis {
			if e, ok := r.Catalog.Entry(c, u); ok {
				all = append(all, e)
			}
		}
	}
	base := "🏛️ Университеты:\n\nИнформация о различных университетах, их программах и требованиях."
	if len(all) == 0 {
		return base
	}
	e := all[r.Pick(len(all))]
	return fmt.Sprintf("%s\n\n🎓 Университет дня: %s (%s)", base, e.Name, e.Country)
}

func (r *Renderer) renderAIQuery(st RenderState) RenderedScreen {
	return withBack(RenderedScreen{
		Text: "🤖 Режим ИИ-помощника\n\n" +
			"Я здесь, чтобы помочь с вопросами о поступлении, выборе направления, " +
			"подготовке документов и поиске грантов.\n\n" +
			"Задайте ваш вопрос:",
	})
}
