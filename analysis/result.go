package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/andrewpaige1/prepass-api/apperr"
	"github.com/andrewpaige1/prepass-api/models"
)

const (
	MinFlashcards = 5
	MinQuizzes    = 3
)

// Result is the validated study material generated from one request.
type Result struct {
	Flashcards      []models.FlashcardDraft `json:"flashcards"`
	Quizzes         []models.QuizDraft      `json:"quizzes"`
	ImportantPoints []string                `json:"importantPoints"`
	Summary         string                  `json:"summary"`
}

// BelowMinimum reports whether fewer items came back than the prompt asks for.
func (r *Result) BelowMinimum() bool {
	return len(r.Flashcards) < MinFlashcards || len(r.Quizzes) < MinQuizzes
}

type rawQuiz struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correctIndex"`
}

type rawPayload struct {
	Error           string                  `json:"error"`
	Flashcards      []models.FlashcardDraft `json:"flashcards"`
	Quizzes         []rawQuiz               `json:"quizzes"`
	ImportantPoints []string                `json:"importantPoints"`
	Summary         string                  `json:"summary"`
}

// StripFences removes a surrounding markdown code fence, if any.
func StripFences(content string) string {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseResult turns the gateway's message content into a Result. The payload is
// untrusted: one malformed item rejects all of it.
func ParseResult(content string) (*Result, error) {
	cleaned := StripFences(content)
	if cleaned == "" {
		return nil, apperr.Service("No content in AI response", nil)
	}

	var raw rawPayload
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, apperr.Service("Failed to parse AI response as JSON", err)
	}
	if msg := strings.TrimSpace(raw.Error); msg != "" {
		return nil, apperr.Service(msg, nil)
	}

	res := &Result{
		Flashcards:      make([]models.FlashcardDraft, 0, len(raw.Flashcards)),
		Quizzes:         make([]models.QuizDraft, 0, len(raw.Quizzes)),
		ImportantPoints: make([]string, 0, len(raw.ImportantPoints)),
		Summary:         strings.TrimSpace(raw.Summary),
	}

	for i, fc := range raw.Flashcards {
		front, back := strings.TrimSpace(fc.Front), strings.TrimSpace(fc.Back)
		if front == "" || back == "" {
			return nil, malformed("flashcard %d is missing a front or back", i+1)
		}
		res.Flashcards = append(res.Flashcards, models.FlashcardDraft{Front: front, Back: back})
	}

	for i, q := range raw.Quizzes {
		question := strings.TrimSpace(q.Question)
		if question == "" {
			return nil, malformed("quiz %d has no question", i+1)
		}
		if len(q.Options) != models.OptionCount {
			return nil, malformed("quiz %d has %d options, want %d", i+1, len(q.Options), models.OptionCount)
		}
		options := make([]string, len(q.Options))
		for j, opt := range q.Options {
			options[j] = strings.TrimSpace(opt)
			if options[j] == "" {
				return nil, malformed("quiz %d has an empty option", i+1)
			}
		}
		if q.CorrectIndex == nil || *q.CorrectIndex < 0 || *q.CorrectIndex >= len(options) {
			return nil, malformed("quiz %d has no valid correctIndex", i+1)
		}
		res.Quizzes = append(res.Quizzes, models.QuizDraft{Question: question, Options: options, CorrectIndex: *q.CorrectIndex})
	}

	for i, p := range raw.ImportantPoints {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, malformed("important point %d is empty", i+1)
		}
		res.ImportantPoints = append(res.ImportantPoints, p)
	}

	if len(res.Flashcards) == 0 && len(res.Quizzes) == 0 && len(res.ImportantPoints) == 0 {
		return nil, apperr.Service("AI response contained no study material", nil)
	}

	return res, nil
}

func malformed(format string, args ...any) error {
	return apperr.Service("AI response was malformed", fmt.Errorf(format, args...))
}
