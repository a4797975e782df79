package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaige1/prepass-api/analysis"
	"github.com/andrewpaige1/prepass-api/apperr"
	"github.com/andrewpaige1/prepass-api/config"
	"github.com/andrewpaige1/prepass-api/export"
	"github.com/andrewpaige1/prepass-api/middleware"
	"github.com/andrewpaige1/prepass-api/models"
	"github.com/andrewpaige1/prepass-api/repository"
	"github.com/andrewpaige1/prepass-api/session"
)

type fakeAnalyzer struct {
	result *analysis.Result
	err    error
	got    []analysis.Request
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req analysis.Request) (*analysis.Result, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func sampleResult() *analysis.Result {
	return &analysis.Result{
		Flashcards: []models.FlashcardDraft{
			{Front: "f1", Back: "b1"}, {Front: "f2", Back: "b2"}, {Front: "f3", Back: "b3"},
			{Front: "f4", Back: "b4"}, {Front: "f5", Back: "b5"},
		},
		Quizzes: []models.QuizDraft{
			{Question: "q1", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 0},
			{Question: "q2", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 1},
			{Question: "q3", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 2},
		},
		ImportantPoints: []string{"p1", "p2"},
		Summary:         "A summary.",
	}
}

type testAPI struct {
	t        *testing.T
	handler  http.Handler
	store    *repository.Store
	analyzer *fakeAnalyzer
	userID   string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := config.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	api := &testAPI{
		t:        t,
		store:    repository.New(db),
		analyzer: &fakeAnalyzer{result: sampleResult()},
		userID:   "user-1",
	}
	h := &Handler{
		Store:    api.store,
		Analyzer: api.analyzer,
		Sessions: session.NewRegistry(),
		Limits:   analysis.DefaultLimits,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	authn := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := &models.User{AuthID: api.userID}
			next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), user)))
		})
	}
	api.handler = h.Routes(authn, middleware.NewRateLimiter(60, 100).PerUser)
	return api
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) seed() {
	a.t.Helper()
	_, _, err := a.store.SaveAnalysis(context.Background(), a.userID, repository.Generated{
		Flashcards:      sampleResult().Flashcards[:3],
		Quizzes:         sampleResult().Quizzes,
		ImportantPoints: sampleResult().ImportantPoints,
	})
	require.NoError(a.t, err)
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzeNotes_JSONText(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/notes/analyze", map[string]any{"text": "The cell is the unit of life."})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[analyzeResponse](t, rec)
	assert.Len(t, resp.Flashcards, 5)
	assert.Len(t, resp.Quizzes, 3)
	assert.Len(t, resp.ImportantPoints, 2)
	assert.Equal(t, "A summary.", resp.Summary)
	assert.Empty(t, resp.Warning)
	require.NotNil(t, resp.Note)
	assert.Equal(t, "The cell is the unit of life.", resp.Note.Excerpt)

	lib := decode[repository.Library](t, api.do(http.MethodGet, "/api/library", nil))
	assert.Len(t, lib.Flashcards, 5)
	for _, c := range lib.Flashcards {
		assert.Equal(t, models.StrengthWeak, c.Strength)
	}

	notes := decode[[]models.Note](t, api.do(http.MethodGet, "/api/notes", nil))
	assert.Len(t, notes, 1)
}

func TestAnalyzeNotes_NoContent(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/notes/analyze", map[string]any{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No content provided", decode[errorResponse](t, rec).Error)
	assert.Empty(t, api.analyzer.got)
}

func TestAnalyzeNotes_OnlyRejectedFiles(t *testing.T) {
	api := newTestAPI(t)

	body := map[string]any{"files": []map[string]string{
		{"name": "notes.txt", "data": base64.StdEncoding.EncodeToString([]byte("plain text notes"))},
	}}
	rec := api.do(http.MethodPost, "/api/notes/analyze", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "notes.txt is not an image or PDF")
	assert.Empty(t, api.analyzer.got)
}

func TestAnalyzeNotes_MultipartKeepsValidFiles(t *testing.T) {
	api := newTestAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("text", "lecture 4"))
	pdf, err := mw.CreateFormFile("files", "slides.pdf")
	require.NoError(t, err)
	_, _ = pdf.Write([]byte("%PDF-1.7\nbody"))
	txt, err := mw.CreateFormFile("files", "todo.txt")
	require.NoError(t, err)
	_, _ = txt.Write([]byte("buy milk"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/notes/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[analyzeResponse](t, rec)
	require.Len(t, resp.Rejected, 1)
	assert.Equal(t, "todo.txt", resp.Rejected[0].Name)

	require.Len(t, api.analyzer.got, 1)
	assert.Equal(t, "lecture 4", api.analyzer.got[0].Text)
	assert.Len(t, api.analyzer.got[0].PDFs, 1)
	assert.Equal(t, 1, resp.Note.PDFCount)
}

func TestAnalyzeNotes_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"rate limited", apperr.RateLimited("Rate limit exceeded. Please try again in a moment.", nil), http.StatusTooManyRequests, "Rate limit exceeded. Please try again in a moment."},
		{"quota", apperr.QuotaExhausted("AI credits exhausted. Please add more credits.", nil), http.StatusPaymentRequired, "AI credits exhausted. Please add more credits."},
		{"explicit error", apperr.Service("Image unreadable", nil), http.StatusBadGateway, "Image unreadable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.analyzer.err = tt.err

			rec := api.do(http.MethodPost, "/api/notes/analyze", map[string]any{"text": "notes"})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, decode[errorResponse](t, rec).Error)

			// nothing partial is stored
			lib := decode[repository.Library](t, api.do(http.MethodGet, "/api/library", nil))
			assert.Empty(t, lib.Flashcards)
		})
	}
}

func TestAnalyzeNotes_Warning(t *testing.T) {
	api := newTestAPI(t)
	api.analyzer.result = &analysis.Result{Flashcards: []models.FlashcardDraft{{Front: "a", Back: "b"}}}

	rec := api.do(http.MethodPost, "/api/notes/analyze", map[string]any{"text": "tiny"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, decode[analyzeResponse](t, rec).Warning)
}

func TestUpdateFlashcardStrength(t *testing.T) {
	api := newTestAPI(t)
	api.seed()
	cards := decode[[]models.Flashcard](t, api.do(http.MethodGet, "/api/flashcards", nil))
	require.Len(t, cards, 3)

	rec := api.do(http.MethodPut, "/api/flashcards/"+cards[0].PublicID+"/strength", map[string]string{"strength": "strong"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StrengthStrong, decode[models.Flashcard](t, rec).Strength)

	rec = api.do(http.MethodPut, "/api/flashcards/"+cards[0].PublicID+"/strength", map[string]string{"strength": "meh"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPut, "/api/flashcards/nope/strength", map[string]string{"strength": "okay"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboard(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"passPercentage":null`)

	api.seed()
	cards := decode[[]models.Flashcard](t, api.do(http.MethodGet, "/api/flashcards", nil))
	api.do(http.MethodPut, "/api/flashcards/"+cards[0].PublicID+"/strength", map[string]string{"strength": "strong"})
	api.do(http.MethodPut, "/api/flashcards/"+cards[1].PublicID+"/strength", map[string]string{"strength": "okay"})

	d := decode[map[string]any](t, api.do(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, true, d["hasData"])
	assert.Equal(t, float64(50), d["passPercentage"])
	assert.Equal(t, float64(3), d["flashcardsStudied"])
	assert.Equal(t, float64(6), d["studyMinutes"])
	assert.Equal(t, float64(60), d["cardsNeeded"])
	assert.Equal(t, float64(3), d["quizzesAvailable"])
	assert.Equal(t, float64(2), d["importantPoints"])
}

func TestFlashcardSessionFlow(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/study/flashcards", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	api.seed()
	view := decode[flashcardView](t, api.do(http.MethodPost, "/api/study/flashcards", nil))
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, 0, view.Index)
	require.NotNil(t, view.Card)

	view = decode[flashcardView](t, api.do(http.MethodPost, "/api/study/flashcards/flip", nil))
	assert.True(t, view.Revealed)
	view = decode[flashcardView](t, api.do(http.MethodPost, "/api/study/flashcards/previous", nil))
	assert.Equal(t, 2, view.Index)
	assert.False(t, view.Revealed)

	rec = api.do(http.MethodPost, "/api/study/flashcards/grade", map[string]string{"strength": "strong"})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[flashcardView](t, rec)
	assert.Equal(t, models.StrengthStrong, view.Card.Strength)
	assert.Equal(t, 1, view.Counts.Strong)
	assert.Equal(t, 33, view.PassPercentage)

	// written through to the store
	cards := decode[[]models.Flashcard](t, api.do(http.MethodGet, "/api/flashcards", nil))
	strong := 0
	for _, c := range cards {
		if c.Strength == models.StrengthStrong {
			strong++
		}
	}
	assert.Equal(t, 1, strong)

	rec = api.do(http.MethodPost, "/api/study/flashcards/grade", map[string]string{"strength": "great"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	view = decode[flashcardView](t, api.do(http.MethodPost, "/api/study/flashcards/shuffle", nil))
	assert.Equal(t, 0, view.Index)
	view = decode[flashcardView](t, api.do(http.MethodPost, "/api/study/flashcards/next", nil))
	assert.Equal(t, 1, view.Index)
	view = decode[flashcardView](t, api.do(http.MethodPost, "/api/study/flashcards/restart", nil))
	assert.Equal(t, 0, view.Index)
	assert.Equal(t, 1, view.Counts.Strong)
}

func TestFlashcardSession_EmptyDeck(t *testing.T) {
	api := newTestAPI(t)

	view := decode[flashcardView](t, api.do(http.MethodPost, "/api/study/flashcards", nil))
	assert.True(t, view.Empty)
	assert.Nil(t, view.Card)

	rec := api.do(http.MethodPost, "/api/study/flashcards/next", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQuizSessionFlow(t *testing.T) {
	api := newTestAPI(t)
	api.seed()

	view := decode[quizView](t, api.do(http.MethodPost, "/api/study/quiz", nil))
	assert.Equal(t, "active", string(view.State))
	assert.Equal(t, 3, view.Total)
	require.NotNil(t, view.Question)
	assert.Nil(t, view.CorrectIndex)

	rec := api.do(http.MethodPost, "/api/study/quiz/advance", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// q1 correct via select + submit
	rec = api.do(http.MethodPost, "/api/study/quiz/select", map[string]int{"option": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[quizView](t, api.do(http.MethodPost, "/api/study/quiz/submit", nil))
	assert.Equal(t, "answered", string(view.State))
	require.NotNil(t, view.LastCorrect)
	assert.True(t, *view.LastCorrect)

	// double submit does not count twice
	rec = api.do(http.MethodPost, "/api/study/quiz/submit", map[string]int{"option": 0})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = api.do(http.MethodPost, "/api/study/quiz/select", map[string]int{"option": 2})
	assert.Equal(t, http.StatusConflict, rec.Code)

	api.do(http.MethodPost, "/api/study/quiz/advance", nil)
	// q2 wrong, q3 correct
	api.do(http.MethodPost, "/api/study/quiz/submit", map[string]int{"option": 3})
	api.do(http.MethodPost, "/api/study/quiz/advance", nil)
	api.do(http.MethodPost, "/api/study/quiz/submit", map[string]int{"option": 2})
	view = decode[quizView](t, api.do(http.MethodPost, "/api/study/quiz/advance", nil))

	assert.Equal(t, "complete", string(view.State))
	assert.Equal(t, 2, view.CorrectCount)
	assert.Equal(t, 1, view.IncorrectCount)
	assert.Equal(t, 67, view.Percentage)
	assert.Nil(t, view.Question)

	// the result is stored once
	api.do(http.MethodGet, "/api/study/quiz", nil)
	d := decode[map[string]any](t, api.do(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, float64(1), d["quizzesCompleted"])

	view = decode[quizView](t, api.do(http.MethodPost, "/api/study/quiz/restart", nil))
	assert.Equal(t, "active", string(view.State))
	assert.Equal(t, 0, view.CorrectCount)
	assert.Equal(t, 0, view.Index)
}

func TestQuizSession_SubmitBodies(t *testing.T) {
	api := newTestAPI(t)
	api.seed()
	api.do(http.MethodPost, "/api/study/quiz", nil)
	api.do(http.MethodPost, "/api/study/quiz/select", map[string]int{"option": 0})

	// a chunked request with no body submits the selected option
	req := httptest.NewRequest(http.MethodPost, "/api/study/quiz/submit", io.MultiReader())
	require.Equal(t, int64(-1), req.ContentLength)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[quizView](t, rec)
	assert.Equal(t, "answered", string(view.State))
	require.NotNil(t, view.LastCorrect)
	assert.True(t, *view.LastCorrect)

	api.do(http.MethodPost, "/api/study/quiz/advance", nil)
	req = httptest.NewRequest(http.MethodPost, "/api/study/quiz/submit", bytes.NewReader([]byte("{not json")))
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuizSession_SelectOutOfRange(t *testing.T) {
	api := newTestAPI(t)
	api.seed()
	api.do(http.MethodPost, "/api/study/quiz", nil)

	rec := api.do(http.MethodPost, "/api/study/quiz/select", map[string]int{"option": 7})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodPost, "/api/study/quiz/select", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteLibrary(t *testing.T) {
	api := newTestAPI(t)
	api.seed()
	api.do(http.MethodPost, "/api/study/flashcards", nil)

	rec := api.do(http.MethodDelete, "/api/library", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	lib := decode[repository.Library](t, api.do(http.MethodGet, "/api/library", nil))
	assert.Empty(t, lib.Flashcards)
	assert.Empty(t, lib.Quizzes)
	assert.Empty(t, lib.ImportantPoints)

	// live sessions are gone too
	rec = api.do(http.MethodGet, "/api/study/flashcards", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExportAndImportFlashcards(t *testing.T) {
	api := newTestAPI(t)
	api.seed()

	rec := api.do(http.MethodGet, "/api/flashcards/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))

	res, err := export.ReadFlashcards(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Len(t, res.Drafts, 3)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "cards.xlsx")
	require.NoError(t, err)
	_, _ = part.Write(rec.Body.Bytes())
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/flashcards/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	importRec := httptest.NewRecorder()
	api.handler.ServeHTTP(importRec, req)
	require.Equal(t, http.StatusCreated, importRec.Code, importRec.Body.String())

	cards := decode[[]models.Flashcard](t, api.do(http.MethodGet, "/api/flashcards", nil))
	assert.Len(t, cards, 6)
}

func TestNotes_Delete(t *testing.T) {
	api := newTestAPI(t)
	api.do(http.MethodPost, "/api/notes/analyze", map[string]any{"text": "notes"})
	notes := decode[[]models.Note](t, api.do(http.MethodGet, "/api/notes", nil))
	require.Len(t, notes, 1)

	rec := api.do(http.MethodDelete, "/api/notes/"+notes[0].PublicID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodDelete, "/api/notes/"+notes[0].PublicID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsersAreIsolated(t *testing.T) {
	api := newTestAPI(t)
	api.seed()

	api.userID = "user-2"
	lib := decode[repository.Library](t, api.do(http.MethodGet, "/api/library", nil))
	assert.Empty(t, lib.Flashcards)

	me := decode[models.User](t, api.do(http.MethodGet, "/api/me", nil))
	assert.Equal(t, "user-2", me.AuthID)
}
