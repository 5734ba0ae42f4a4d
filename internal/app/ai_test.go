package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestAIManager(srv *httptest.Server) *AIManager {
	am := NewAIManager("test-key")
	am.BaseURL = srv.URL
	return am
}

func TestAIAskSuccess(t *testing.T) {
	var gotAuth string
	var gotReq AIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "  Ответ модели  "}},
			},
		})
	}))
	defer srv.Close()

	am := newTestAIManager(srv)
	answer, err := am.Ask(context.Background(), "Как поступить в ELTE?", "категория: Школьник")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "Ответ модели" {
		t.Fatalf("ответ не обрезан: %q", answer)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("сообщения: %+v", gotReq.Messages)
	}
	// Контекст роли подмешивается в системный промпт.
	if !strings.Contains(gotReq.Messages[0].Content, "категория: Школьник") {
		t.Fatalf("контекст роли потерян: %q", gotReq.Messages[0].Content)
	}
	if gotReq.Model != AIModel {
		t.Fatalf("модель %q", gotReq.Model)
	}
}

func TestAIAskAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "rate limited"}})
	}))
	defer srv.Close()

	am := newTestAIManager(srv)
	if _, err := am.Ask(context.Background(), "вопрос", ""); err == nil {
		t.Fatal("ошибка API должна возвращаться как error")
	}
}

func TestAIAskHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	am := newTestAIManager(srv)
	_, err := am.Ask(context.Background(), "вопрос", "")
	if err == nil {
		t.Fatal("не-200 должен возвращать error")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("в ошибке нет кода статуса: %v", err)
	}
}

func TestAIAskEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(AIChatResponse{})
	}))
	defer srv.Close()

	am := newTestAIManager(srv)
	if _, err := am.Ask(context.Background(), "вопрос", ""); err == nil {
		t.Fatal("пустой список choices должен возвращать error")
	}
}

func TestAIAskMissingKey(t *testing.T) {
	am := NewAIManager("")
	if _, err := am.Ask(context.Background(), "вопрос", ""); err == nil {
		t.Fatal("пустой ключ должен возвращать error без сетевого вызова")
	}
}

// Формат видимой пользователю ошибки фиксирован, признак сбоя выставлен.
func TestAIAskSafeErrorText(t *testing.T) {
	am := NewAIManager("")
	got, failed := am.AskSafe(context.Background(), "вопрос", "")
	if !strings.HasPrefix(got, "❗ Ошибка при обращении к ИИ: ") {
		t.Fatalf("неверный формат ошибки: %q", got)
	}
	if !failed {
		t.Fatal("ошибка должна помечаться признаком сбоя")
	}
}

func TestAIAskSafeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Ответ"}},
			},
		})
	}))
	defer srv.Close()

	am := newTestAIManager(srv)
	got, failed := am.AskSafe(context.Background(), "вопрос", "")
	if failed {
		t.Fatal("успешный ответ помечен как сбой")
	}
	if got != "Ответ" {
		t.Fatalf("ответ: %q", got)
	}
}
