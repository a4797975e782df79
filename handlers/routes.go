package handlers

import (
	"net/http"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Routes builds the API router. authn validates the token and syncs the user;
// analyzeLimit throttles the analysis endpoint.
func (h *Handler) Routes(authn, analyzeLimit Middleware) http.Handler {
	api := http.NewServeMux()

	// User
	api.HandleFunc("GET /api/me", h.GetCurrentUser)

	// Library
	api.HandleFunc("GET /api/library", h.GetLibrary)
	api.HandleFunc("DELETE /api/library", h.DeleteLibrary)
	api.HandleFunc("GET /api/dashboard", h.GetDashboard)

	// Notes
	api.Handle("POST /api/notes/analyze", analyzeLimit(http.HandlerFunc(h.AnalyzeNotes)))
	api.HandleFunc("GET /api/notes", h.GetNotes)
	api.HandleFunc("DELETE /api/notes/{noteID}", h.DeleteNote)

	// Flashcards
	api.HandleFunc("GET /api/flashcards", h.GetFlashcards)
	api.HandleFunc("GET /api/flashcards/export", h.ExportFlashcards)
	api.HandleFunc("POST /api/flashcards/import", h.ImportFlashcards)
	api.HandleFunc("PUT /api/flashcards/{flashcardID}/strength", h.UpdateFlashcardStrength)

	// Quizzes and important points
	api.HandleFunc("GET /api/quizzes", h.GetQuizzes)
	api.HandleFunc("GET /api/points", h.GetImportantPoints)

	// Flashcard session
	api.HandleFunc("POST /api/study/flashcards", h.StartFlashcards)
	api.HandleFunc("GET /api/study/flashcards", h.GetFlashcardSession)
	api.HandleFunc("POST /api/study/flashcards/next", h.NextFlashcard)
	api.HandleFunc("POST /api/study/flashcards/previous", h.PreviousFlashcard)
	api.HandleFunc("POST /api/study/flashcards/shuffle", h.ShuffleFlashcards)
	api.HandleFunc("POST /api/study/flashcards/restart", h.RestartFlashcards)
	api.HandleFunc("POST /api/study/flashcards/flip", h.FlipFlashcard)
	api.HandleFunc("POST /api/study/flashcards/grade", h.GradeFlashcard)

	// Quiz session
	api.HandleFunc("POST /api/study/quiz", h.StartQuiz)
	api.HandleFunc("GET /api/study/quiz", h.GetQuizSession)
	api.HandleFunc("POST /api/study/quiz/select", h.SelectQuizOption)
	api.HandleFunc("POST /api/study/quiz/submit", h.SubmitQuizAnswer)
	api.HandleFunc("POST /api/study/quiz/advance", h.AdvanceQuiz)
	api.HandleFunc("POST /api/study/quiz/restart", h.RestartQuiz)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", Healthz)
	root.Handle("/api/", authn(api))
	return root
}
