package app

import "strings"

// ==========================================
// ДЕЙСТВИЯ (разбор callback-данных)
// ==========================================

// Callback-данные разбираются один раз на границе в закрытый тип,
// дальше контроллер матчится по Kind. Неизвестный токен — ActionUnknown,
// никогда не паника.

type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionSelectRole
	ActionSelectDirection
	ActionChooseCountry
	ActionShowByDirection
	ActionSelectCountry
	ActionSelectUniversity
	ActionToggleSection
	ActionBack
	ActionOpenReference
	ActionReferenceTopic
	ActionAIMode
)

type Action struct {
	Kind       ActionKind
	Role       string
	Direction  string
	Country    string
	University string
	Section    string
	Topic      string
	Raw        string
}

var validRoles = map[string]bool{"school": true, "student": true, "gap": true}

var referenceTopics = map[string]bool{
	"directions":   true,
	"countries":    true,
	"universities": true,
	"grants":       true,
	"documents":    true,
}

// ParseAction переводит строку callback в Action. Грамматика префиксов
// унаследована от старых версий бота, поэтому "back_to_*" тоже принимается
// как обычный back: история теперь настоящая и цель возврата не нужна.
func ParseAction(data string) Action {
	data = strings.TrimSpace(data)
	a := Action{Kind: ActionUnknown, Raw: data}

	switch {
	case data == "back" || strings.HasPrefix(data, "back_to_"):
		a.Kind = ActionBack

	case data == "choose_country":
		a.Kind = ActionChooseCountry

	case data == "ai_mode":
		a.Kind = ActionAIMode

	case data == "reference":
		a.Kind = ActionOpenReference

	case strings.HasPrefix(data, "ref_"):
		topic := strings.TrimPrefix(data, "ref_")
		if referenceTopics[topic] {
			a.Kind = ActionReferenceTopic
			a.Topic = topic
		}

	case strings.HasPrefix(data, "role_"):
		role := strings.TrimPrefix(data, "role_")
		if validRoles[role] {
			a.Kind = ActionSelectRole
			a.Role = role
		}

	case strings.HasPrefix(data, "show_unis_by_direction_"):
		key := strings.TrimPrefix(data, "show_unis_by_direction_")
		if _, ok := directionNames[key]; ok {
			a.Kind = ActionShowByDirection
			a.Direction = key
		}

	case strings.HasPrefix(data, "direction_"):
		key := strings.TrimPrefix(data, "direction_")
		if _, ok := directionNames[key]; ok {
			a.Kind = ActionSelectDirection
			a.Direction = key
		}

	case strings.HasPrefix(data, "country_"):
		name := strings.TrimPrefix(data, "country_")
		if name != "" {
			a.Kind = ActionSelectCountry
			a.Country = name
		}

	case strings.HasPrefix(data, "uni_section_"):
		section := strings.TrimPrefix(data, "uni_section_")
		if _, ok := sectionTitles[section]; ok {
			a.Kind = ActionToggleSection
			a.Section = section
		}

	case strings.HasPrefix(data, "uni_"):
		// uni_<страна>_<название>; в названии допускаются подчеркивания,
		// поэтому режем только по первым двум разделителям.
		rest := strings.TrimPrefix(data, "uni_")
		parts := strings.SplitN(rest, "_", 2)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			a.Kind = ActionSelectUniversity
			a.Country = parts[0]
			a.University = parts[1]
		}
	}

	return a
}
