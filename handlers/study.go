package handlers

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/andrewpaige1/prepass-api/models"
	"github.com/andrewpaige1/prepass-api/session"
	"github.com/andrewpaige1/prepass-api/study"
)

var errNoSession = errors.New("no active session, start one first")

type flashcardView struct {
	Empty          bool                 `json:"empty"`
	Index          int                  `json:"index"`
	Total          int                  `json:"total"`
	Revealed       bool                 `json:"revealed"`
	Card           *models.Flashcard    `json:"card"`
	Counts         study.StrengthCounts `json:"counts"`
	PassPercentage int                  `json:"passPercentage"`
}

func viewFlashcards(s *study.FlashcardSession) flashcardView {
	v := flashcardView{
		Empty:          s.Empty(),
		Index:          s.Index(),
		Total:          s.Len(),
		Revealed:       s.Revealed(),
		Counts:         s.Counts(),
		PassPercentage: s.PassPercentage(),
	}
	if card, ok := s.Current(); ok {
		v.Card = &card
	}
	return v
}

type questionView struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type quizView struct {
	State          study.QuizState `json:"state"`
	Index          int             `json:"index"`
	Total          int             `json:"total"`
	CorrectCount   int             `json:"correctCount"`
	IncorrectCount int             `json:"incorrectCount"`
	Selected       *int            `json:"selected"`
	Question       *questionView   `json:"question"`
	// set once the current question is answered
	LastCorrect  *bool `json:"lastCorrect,omitempty"`
	CorrectIndex *int  `json:"correctIndex,omitempty"`
	Percentage   int   `json:"percentage"`
}

func viewQuiz(q *study.QuizSession) quizView {
	v := quizView{
		State:          q.State(),
		Index:          q.Index(),
		Total:          q.Len(),
		CorrectCount:   q.CorrectCount(),
		IncorrectCount: q.IncorrectCount(),
		Percentage:     q.Percentage(),
	}
	if sel := q.Selected(); sel >= 0 {
		v.Selected = &sel
	}
	if quiz, ok := q.Current(); ok {
		v.Question = &questionView{ID: quiz.PublicID, Question: quiz.Question, Options: quiz.Options}
		if q.State() == study.QuizAnswered {
			correct := q.LastCorrect()
			idx := quiz.CorrectIndex
			v.LastCorrect = &correct
			v.CorrectIndex = &idx
		}
	}
	return v
}

// StartFlashcards opens a review session over the user's stored cards.
func (h *Handler) StartFlashcards(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	cards, err := h.Store.ListFlashcards(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	var view flashcardView
	_ = h.Sessions.Do(userID, func(ws *session.Workspace) error {
		ws.Flashcards = study.NewFlashcardSession(cards, h.Store)
		view = viewFlashcards(ws.Flashcards)
		return nil
	})
	writeJSON(w, http.StatusCreated, view)
}

// withFlashcards runs fn on the user's flashcard session and responds with its
// snapshot.
func (h *Handler) withFlashcards(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, s *study.FlashcardSession) error) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var view flashcardView
	err := h.Sessions.Do(userID, func(ws *session.Workspace) error {
		if ws.Flashcards == nil {
			return errNoSession
		}
		err := fn(r.Context(), ws.Flashcards)
		view = viewFlashcards(ws.Flashcards)
		return err
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) GetFlashcardSession(w http.ResponseWriter, r *http.Request) {
	h.withFlashcards(w, r, func(context.Context, *study.FlashcardSession) error { return nil })
}

func (h *Handler) NextFlashcard(w http.ResponseWriter, r *http.Request) {
	h.withFlashcards(w, r, func(_ context.Context, s *study.FlashcardSession) error {
		s.Next()
		return nil
	})
}

func (h *Handler) PreviousFlashcard(w http.ResponseWriter, r *http.Request) {
	h.withFlashcards(w, r, func(_ context.Context, s *study.FlashcardSession) error {
		s.Previous()
		return nil
	})
}

func (h *Handler) ShuffleFlashcards(w http.ResponseWriter, r *http.Request) {
	h.withFlashcards(w, r, func(_ context.Context, s *study.FlashcardSession) error {
		s.Shuffle()
		return nil
	})
}

func (h *Handler) RestartFlashcards(w http.ResponseWriter, r *http.Request) {
	h.withFlashcards(w, r, func(_ context.Context, s *study.FlashcardSession) error {
		s.Restart()
		return nil
	})
}

func (h *Handler) FlipFlashcard(w http.ResponseWriter, r *http.Request) {
	h.withFlashcards(w, r, func(_ context.Context, s *study.FlashcardSession) error {
		s.Flip()
		return nil
	})
}

// GradeFlashcard grades the current card and writes the grade through to the
// store. A failed write leaves the card as it was.
func (h *Handler) GradeFlashcard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Strength string `json:"strength"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.withFlashcards(w, r, func(ctx context.Context, s *study.FlashcardSession) error {
		return s.GradeCurrent(ctx, models.Strength(req.Strength))
	})
}

// StartQuiz opens a quiz session over the user's stored questions.
func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	quizzes, err := h.Store.ListQuizzes(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	var view quizView
	_ = h.Sessions.Do(userID, func(ws *session.Workspace) error {
		ws.Quiz = study.NewQuizSession(quizzes)
		ws.QuizRecorded = false
		view = viewQuiz(ws.Quiz)
		return nil
	})
	writeJSON(w, http.StatusCreated, view)
}

// withQuiz runs fn on the user's quiz session. The first time the session
// reaches completion its result is stored.
func (h *Handler) withQuiz(w http.ResponseWriter, r *http.Request, fn func(q *study.QuizSession) error) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var view quizView
	err := h.Sessions.Do(userID, func(ws *session.Workspace) error {
		if ws.Quiz == nil {
			return errNoSession
		}
		if err := fn(ws.Quiz); err != nil {
			return err
		}

		if ws.Quiz.State() == study.QuizComplete && !ws.QuizRecorded {
			_, err := h.Store.RecordQuizResult(r.Context(), userID, ws.Quiz.CorrectCount(), ws.Quiz.Len(), ws.Quiz.Percentage())
			if err != nil {
				// the pass stays complete; the result is just not counted
				h.Logger.Error("failed to record quiz result", "user", userID, "error", err)
			} else {
				ws.QuizRecorded = true
			}
		}
		if ws.Quiz.State() != study.QuizComplete {
			ws.QuizRecorded = false
		}

		view = viewQuiz(ws.Quiz)
		return nil
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) GetQuizSession(w http.ResponseWriter, r *http.Request) {
	h.withQuiz(w, r, func(*study.QuizSession) error { return nil })
}

type optionRequest struct {
	Option *int `json:"option"`
}

func (h *Handler) SelectQuizOption(w http.ResponseWriter, r *http.Request) {
	var req optionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if req.Option == nil {
		writeError(w, http.StatusBadRequest, "option is required")
		return
	}

	h.withQuiz(w, r, func(q *study.QuizSession) error {
		return q.Select(*req.Option)
	})
}

// SubmitQuizAnswer commits the selected option, or the option in the body when
// one is given.
func (h *Handler) SubmitQuizAnswer(w http.ResponseWriter, r *http.Request) {
	var req optionRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.withQuiz(w, r, func(q *study.QuizSession) error {
		if req.Option != nil {
			_, err := q.SubmitAnswer(*req.Option)
			return err
		}
		_, err := q.Submit()
		return err
	})
}

func (h *Handler) AdvanceQuiz(w http.ResponseWriter, r *http.Request) {
	h.withQuiz(w, r, func(q *study.QuizSession) error {
		return q.Advance()
	})
}

func (h *Handler) RestartQuiz(w http.ResponseWriter, r *http.Request) {
	h.withQuiz(w, r, func(q *study.QuizSession) error {
		q.Restart()
		return nil
	})
}
