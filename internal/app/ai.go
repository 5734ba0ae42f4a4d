package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ==========================================
// ИИ-ПОМОЩНИК (OpenRouter)
// ==========================================

const (
	OpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	AIModel       = "deepseek/deepseek-chat-v3-0324:free"

	aiSystemPrompt = "Ты консультант по поступлению и профориентации. Помогай пользователям " +
		"с вопросами о поступлении в университеты, выборе направлений, подготовке документов, " +
		"поиске грантов и стипендий. Отвечай подробно и поддерживающе."
)

type AIManager struct {
	mu         sync.Mutex
	APIKey     string
	BaseURL    string
	Model      string
	HttpClient *http.Client
}

type AIChatRequest struct {
	Model    string  `json:"model"`
	Messages []AIMsg `json:"messages"`
}

type AIMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AIChatResponse struct {
	Choices []struct {
		Message AIMsg `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewAIManager(apiKey string) *AIManager {
	return &AIManager{
		APIKey:     apiKey,
		BaseURL:    OpenRouterURL,
		Model:      AIModel,
		HttpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Ask выполняет один запрос к модели. Контекст роли подмешивается в
// системный промпт. Сетевые и API-ошибки возвращаются как error.
func (am *AIManager) Ask(ctx context.Context, prompt, roleContext string) (string, error) {
	am.mu.Lock()
	apiKey := am.APIKey
	baseURL := am.BaseURL
	model := am.Model
	client := am.HttpClient
	am.mu.Unlock()

	if strings.TrimSpace(apiKey) == "" {
		return "", fmt.Errorf("ключ OpenRouter не задан")
	}

	system := aiSystemPrompt
	if roleContext != "" {
		system += "\n\nПользователь: " + roleContext
	}

	reqBody := AIChatRequest{
		Model: model,
		Messages: []AIMsg{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chatResp AIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", err
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("api: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("пустой ответ модели")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// AskSafe — граница доверия: любая ошибка внешнего сервиса превращается
// в видимый пользователю текст и наружу не выходит. Второе значение —
// признак сбоя для статистики и журнала.
func (am *AIManager) AskSafe(ctx context.Context, prompt, roleContext string) (string, bool) {
	answer, err := am.Ask(ctx, prompt, roleContext)
	if err != nil {
		log.Printf("⚠️ Ошибка ИИ: %v", err)
		return fmt.Sprintf("❗ Ошибка при обращении к ИИ: %v", err), true
	}
	return answer, false
}
