package app

import "testing"

func TestParseAction(t *testing.T) {
	cases := []struct {
		data string
		want Action
	}{
		{"back", Action{Kind: ActionBack}},
		{"back_to_roles", Action{Kind: ActionBack}},
		{"back_to_uni_list", Action{Kind: ActionBack}},
		{"choose_country", Action{Kind: ActionChooseCountry}},
		{"ai_mode", Action{Kind: ActionAIMode}},
		{"reference", Action{Kind: ActionOpenReference}},
		{"ref_grants", Action{Kind: ActionReferenceTopic, Topic: "grants"}},
		{"ref_nonsense", Action{Kind: ActionUnknown}},
		{"role_school", Action{Kind: ActionSelectRole, Role: "school"}},
		{"role_gap", Action{Kind: ActionSelectRole, Role: "gap"}},
		{"role_admin", Action{Kind: ActionUnknown}},
		{"direction_it", Action{Kind: ActionSelectDirection, Direction: "it"}},
		{"direction_law", Action{Kind: ActionUnknown}},
		{"show_unis_by_direction_art", Action{Kind: ActionShowByDirection, Direction: "art"}},
		{"country_Венгрия", Action{Kind: ActionSelectCountry, Country: "Венгрия"}},
		{"country_", Action{Kind: ActionUnknown}},
		{"uni_section_deadlines", Action{Kind: ActionToggleSection, Section: "deadlines"}},
		{"uni_section_bogus", Action{Kind: ActionUnknown}},
		{"uni_Венгрия_ELTE", Action{Kind: ActionSelectUniversity, Country: "Венгрия", University: "ELTE"}},
		{"uni_Венгрия_", Action{Kind: ActionUnknown}},
		{"uni_", Action{Kind: ActionUnknown}},
		{"", Action{Kind: ActionUnknown}},
		{"garbage", Action{Kind: ActionUnknown}},
	}

	for _, tc := range cases {
		got := ParseAction(tc.data)
		if got.Kind != tc.want.Kind {
			t.Fatalf("ParseAction(%q): Kind = %v, ожидалось %v", tc.data, got.Kind, tc.want.Kind)
		}
		if got.Role != tc.want.Role || got.Direction != tc.want.Direction ||
			got.Country != tc.want.Country || got.University != tc.want.University ||
			got.Section != tc.want.Section || got.Topic != tc.want.Topic {
			t.Fatalf("ParseAction(%q) = %+v, ожидалось %+v", tc.data, got, tc.want)
		}
	}
}

// Название университета может содержать подчеркивания, режется только
// по первым двум разделителям.
func TestParseActionUniversityWithUnderscores(t *testing.T) {
	got := ParseAction("uni_Германия_RWTH_Aachen_University")
	if got.Kind != ActionSelectUniversity {
		t.Fatalf("Kind = %v, ожидалось ActionSelectUniversity", got.Kind)
	}
	if got.Country != "Германия" {
		t.Fatalf("Country = %q", got.Country)
	}
	if got.University != "RWTH_Aachen_University" {
		t.Fatalf("University = %q", got.University)
	}
}

// show_unis_by_direction_* не должен перехватываться префиксом direction_.
func TestParseActionPrefixPriority(t *testing.T) {
	got := ParseAction("show_unis_by_direction_business")
	if got.Kind != ActionShowByDirection || got.Direction != "business" {
		t.Fatalf("получено %+v", got)
	}
	got = ParseAction("uni_section_documents")
	if got.Kind != ActionToggleSection || got.Section != "documents" {
		t.Fatalf("получено %+v", got)
	}
}
