package app

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// ==========================================
// REST API ДЛЯ ВЕБ-ПАНЕЛИ
// ==========================================

// startAPIServer поднимает HTTP-интерфейс поверх той же БД, что и бот.
// Запускается только при catalog_source=db.
func startAPIServer(addr string, sm *StoreManager) {
	r := newAPIRouter(sm)
	log.Printf("✅ REST API: %s/api", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Printf("⚠️ API server stopped: %v", err)
	}
}

func newAPIRouter(sm *StoreManager) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/countries", handleListCountries(sm))
		r.Get("/countries/{id}", handleGetCountry(sm))
		r.Get("/universities", handleListUniversities(sm))
		r.Get("/universities/{id}", handleGetUniversity(sm))
		r.Get("/programs", handleListPrograms(sm))
		r.Get("/scholarships", handleListScholarships(sm))

		r.Get("/surveys", handleListSurveys(sm))
		r.Get("/surveys/{id}/questions", handleSurveyQuestions(sm))
		r.Get("/questions/{id}/answers", handleQuestionAnswers(sm))
		r.Post("/questions/{id}/answers", handleCreateAnswer(sm))

		r.Get("/feedback", handleListFeedback(sm))
		r.Post("/feedback", handleCreateFeedback(sm))

		r.Get("/ailogs", handleListAiLogs(sm))
		r.Post("/ailogs", handleCreateAiLog(sm))
		r.Get("/dashboard-stats", handleDashboardStats(sm))
		r.Get("/home-stats", handleHomeStats(sm))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️ Ошибка записи JSON-ответа: %v", err)
	}
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func paramUint(r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// ==========================================
// КАТАЛОГ
// ==========================================

func handleListCountries(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sm.ListCountries())
	}
}

// handleGetCountry отдает страну вместе со списком ее университетов.
func handleGetCountry(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := paramUint(r, "id")
		if !ok {
			writeErr(w, http.StatusBadRequest, "некорректный id")
			return
		}
		var country Country
		if err := sm.DB.First(&country, id).Error; err != nil {
			writeErr(w, http.StatusNotFound, "страна не найдена")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"country":      country,
			"universities": sm.UniversitiesByCountryID(country.ID),
		})
	}
}

func handleListUniversities(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		country := r.URL.Query().Get("country")
		direction := r.URL.Query().Get("direction")
		if direction != "" {
			if _, ok := directionNames[direction]; !ok {
				writeErr(w, http.StatusBadRequest, "неизвестное направление: "+direction)
				return
			}
		}
		unis := sm.SearchUniversities(q, country, direction)
		if unis == nil {
			unis = []University{}
		}
		writeJSON(w, http.StatusOK, unis)
	}
}

func handleGetUniversity(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := paramUint(r, "id")
		if !ok {
			writeErr(w, http.StatusBadRequest, "некорректный id")
			return
		}
		uni, found := sm.GetUniversity(id)
		if !found {
			writeErr(w, http.StatusNotFound, "университет не найден")
			return
		}
		writeJSON(w, http.StatusOK, uni)
	}
}

func handleListPrograms(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sm.ProgramsByCountry(r.URL.Query().Get("country")))
	}
}

func handleListScholarships(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sm.ListScholarships())
	}
}

// ==========================================
// ОПРОСЫ И ОБРАТНАЯ СВЯЗЬ
// ==========================================

func handleListSurveys(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sm.ListSurveys())
	}
}

func handleSurveyQuestions(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := paramUint(r, "id")
		if !ok {
			writeErr(w, http.StatusBadRequest, "некорректный id")
			return
		}
		writeJSON(w, http.StatusOK, sm.SurveyQuestions(id))
	}
}

func handleQuestionAnswers(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := paramUint(r, "id")
		if !ok {
			writeErr(w, http.StatusBadRequest, "некорректный id")
			return
		}
		writeJSON(w, http.StatusOK, sm.AnswersByQuestion(id))
	}
}

func handleCreateAnswer(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := paramUint(r, "id")
		if !ok {
			writeErr(w, http.StatusBadRequest, "некорректный id")
			return
		}
		var req struct {
			ChatID int64  `json:"chat_id"`
			Text   string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
			writeErr(w, http.StatusBadRequest, "требуется поле text")
			return
		}
		answer := SurveyAnswer{QuestionID: id, ChatID: req.ChatID, Text: req.Text}
		if err := sm.CreateAnswer(&answer); err != nil {
			writeErr(w, http.StatusInternalServerError, "не удалось сохранить ответ")
			return
		}
		writeJSON(w, http.StatusCreated, answer)
	}
}

func handleListFeedback(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, sm.ListFeedback(limit))
	}
}

func handleCreateFeedback(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ChatID int64  `json:"chat_id"`
			Text   string `json:"text"`
			Rating int    `json:"rating"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
			writeErr(w, http.StatusBadRequest, "требуется поле text")
			return
		}
		if req.Rating < 0 || req.Rating > 5 {
			writeErr(w, http.StatusBadRequest, "rating должен быть от 0 до 5")
			return
		}
		fb := Feedback{PublicID: uuid.NewString(), ChatID: req.ChatID, Text: req.Text, Rating: req.Rating}
		if err := sm.CreateFeedback(&fb); err != nil {
			writeErr(w, http.StatusInternalServerError, "не удалось сохранить отзыв")
			return
		}
		writeJSON(w, http.StatusCreated, fb)
	}
}

// ==========================================
// СТАТИСТИКА
// ==========================================

func handleListAiLogs(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, sm.ListAiLogs(limit))
	}
}

func handleCreateAiLog(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ChatID   int64  `json:"chat_id"`
			Prompt   string `json:"prompt"`
			Response string `json:"response"`
			Failed   bool   `json:"failed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
			writeErr(w, http.StatusBadRequest, "требуется поле prompt")
			return
		}
		rec := AiLog{ChatID: req.ChatID, RequestID: uuid.NewString(), Prompt: req.Prompt, Response: req.Response, Failed: req.Failed}
		if err := sm.DB.Create(&rec).Error; err != nil {
			writeErr(w, http.StatusInternalServerError, "не удалось сохранить запись")
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func handleDashboardStats(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sm.DashboardCounts())
	}
}

// handleHomeStats — короткая витрина для главной страницы.
func handleHomeStats(sm *StoreManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts := sm.DashboardCounts()
		writeJSON(w, http.StatusOK, map[string]int64{
			"countries":    counts["countries"],
			"universities": counts["universities"],
			"programs":     counts["programs"],
			"scholarships": counts["scholarships"],
		})
	}
}
