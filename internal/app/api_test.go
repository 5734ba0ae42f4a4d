package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAPIListCountries(t *testing.T) {
	sm := newTestStore(t)

	req := httptest.NewRequest(http.MethodGet, "/api/countries", nil)
	w := httptest.NewRecorder()
	handleListCountries(sm)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("статус %d", w.Code)
	}
	var countries []Country
	if err := json.NewDecoder(w.Body).Decode(&countries); err != nil {
		t.Fatalf("декодирование: %v", err)
	}
	if len(countries) != 2 {
		t.Fatalf("стран %d, ожидалось 2", len(countries))
	}
}

func TestAPIListUniversitiesFilters(t *testing.T) {
	sm := newTestStore(t)

	req := httptest.NewRequest(http.MethodGet, "/api/universities?direction=business", nil)
	w := httptest.NewRecorder()
	handleListUniversities(sm)(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("статус %d", w.Code)
	}
	var unis []University
	json.NewDecoder(w.Body).Decode(&unis)
	if len(unis) != 1 || unis[0].Name != "BGE" {
		t.Fatalf("фильтр по направлению: %+v", unis)
	}

	// Неизвестное направление — 400, а не пустой список.
	req = httptest.NewRequest(http.MethodGet, "/api/universities?direction=law", nil)
	w = httptest.NewRecorder()
	handleListUniversities(sm)(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("статус %d, ожидалось 400", w.Code)
	}

	// Пустой результат — пустой массив, не null.
	req = httptest.NewRequest(http.MethodGet, "/api/universities?q=nothing-matches", nil)
	w = httptest.NewRecorder()
	handleListUniversities(sm)(w, req)
	if strings.TrimSpace(w.Body.String()) == "null" {
		t.Fatal("пустой результат должен сериализоваться как []")
	}
}

func TestAPICreateFeedbackValidation(t *testing.T) {
	sm := newTestStore(t)

	req := httptest.NewRequest(http.MethodPost, "/api/feedback",
		strings.NewReader(`{"chat_id":42,"text":"Полезный бот","rating":5}`))
	w := httptest.NewRecorder()
	handleCreateFeedback(sm)(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("статус %d, тело %s", w.Code, w.Body.String())
	}
	var fb Feedback
	json.NewDecoder(w.Body).Decode(&fb)
	if fb.PublicID == "" {
		t.Fatal("отзыву не присвоен публичный id")
	}

	// Без текста — 400.
	req = httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(`{"chat_id":42}`))
	w = httptest.NewRecorder()
	handleCreateFeedback(sm)(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("статус %d, ожидалось 400", w.Code)
	}

	// Рейтинг вне диапазона — 400.
	req = httptest.NewRequest(http.MethodPost, "/api/feedback",
		strings.NewReader(`{"chat_id":42,"text":"x","rating":9}`))
	w = httptest.NewRecorder()
	handleCreateFeedback(sm)(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("статус %d, ожидалось 400", w.Code)
	}
}

func TestAPIGetUniversityNotFound(t *testing.T) {
	sm := newTestStore(t)

	r := httptest.NewRequest(http.MethodGet, "/api/universities/999", nil)
	w := httptest.NewRecorder()

	// Прогоняем через роутер, чтобы проверить разбор {id}.
	newAPIRouter(sm).ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Fatalf("статус %d, ожидалось 404", w.Code)
	}
}
