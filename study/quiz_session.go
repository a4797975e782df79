package study

import (
	"errors"

	"github.com/andrewpaige1/prepass-api/models"
)

// Errors returned when a quiz operation is not allowed in the current state.
// None of them change the session.
var (
	// ErrNoQuestions is returned by every operation on an empty quiz.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrQuizComplete is returned after the last question has been advanced past.
	ErrQuizComplete = errors.New("quiz is complete, restart to play again")
	// ErrAnswerLocked is returned when selecting after the answer is submitted.
	ErrAnswerLocked = errors.New("answer already submitted for this question")
	// ErrAlreadyAnswered is returned when submitting the same question twice.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrNoSelection is returned when submitting with no option chosen.
	ErrNoSelection = errors.New("select an option before submitting")
	// ErrNotAnswered is returned when advancing before submitting.
	ErrNotAnswered = errors.New("submit an answer before advancing")
	// ErrOptionOutOfRange is returned for an option index outside the question's options.
	ErrOptionOutOfRange = errors.New("option index out of range")
)

// QuizState is the phase a QuizSession is in.
type QuizState string

// Quiz phases.
const (
	QuizEmpty    QuizState = "empty"
	QuizActive   QuizState = "active"
	QuizAnswered QuizState = "answered"
	QuizComplete QuizState = "complete"
)

// QuizSession runs one pass over an ordered set of multiple-choice questions.
type QuizSession struct {
	questions []models.Quiz

	index        int
	correctCount int
	selected     int // -1 when nothing is selected
	answered     bool
	lastCorrect  bool
	complete     bool
}

// NewQuizSession starts a quiz over a copy of questions.
func NewQuizSession(questions []models.Quiz) *QuizSession {
	return &QuizSession{
		questions: append([]models.Quiz(nil), questions...),
		selected:  -1,
	}
}

// State returns the current phase.
func (q *QuizSession) State() QuizState {
	switch {
	case len(q.questions) == 0:
		return QuizEmpty
	case q.complete:
		return QuizComplete
	case q.answered:
		return QuizAnswered
	default:
		return QuizActive
	}
}

// Len is the number of questions in the quiz.
func (q *QuizSession) Len() int { return len(q.questions) }

// Index is the position of the current question.
func (q *QuizSession) Index() int { return q.index }

// CorrectCount is the number of correct answers so far in this pass.
func (q *QuizSession) CorrectCount() int { return q.correctCount }

// LastCorrect reports whether the submitted answer to the current question was
// correct. It is false until the question is answered.
func (q *QuizSession) LastCorrect() bool { return q.answered && q.lastCorrect }

// Selected returns the chosen option index, or -1.
func (q *QuizSession) Selected() int {
	return q.selected
}

// AnsweredCount is the number of questions submitted so far in this pass.
func (q *QuizSession) AnsweredCount() int {
	if q.complete {
		return len(q.questions)
	}
	if q.answered {
		return q.index + 1
	}
	return q.index
}

// IncorrectCount is the number of submitted questions answered wrong.
func (q *QuizSession) IncorrectCount() int {
	return q.AnsweredCount() - q.correctCount
}

// Current returns the question being asked. It is unavailable when the quiz is
// empty or complete.
func (q *QuizSession) Current() (models.Quiz, bool) {
	if len(q.questions) == 0 || q.complete {
		return models.Quiz{}, false
	}
	return q.questions[q.index], true
}

// Percentage returns the running score over the whole quiz.
func (q *QuizSession) Percentage() int {
	return QuizPercentage(q.correctCount, len(q.questions))
}

func (q *QuizSession) checkPlayable() error {
	if len(q.questions) == 0 {
		return ErrNoQuestions
	}
	if q.complete {
		return ErrQuizComplete
	}
	return nil
}

// Select picks an option without committing it.
func (q *QuizSession) Select(option int) error {
	if err := q.checkPlayable(); err != nil {
		return err
	}
	if q.answered {
		return ErrAnswerLocked
	}
	if option < 0 || option >= len(q.questions[q.index].Options) {
		return ErrOptionOutOfRange
	}
	q.selected = option
	return nil
}

// Submit commits the selected option and reports whether it was correct.
func (q *QuizSession) Submit() (bool, error) {
	if err := q.checkPlayable(); err != nil {
		return false, err
	}
	if q.answered {
		return false, ErrAlreadyAnswered
	}
	if q.selected < 0 {
		return false, ErrNoSelection
	}

	q.answered = true
	q.lastCorrect = q.selected == q.questions[q.index].CorrectIndex
	if q.lastCorrect {
		q.correctCount++
	}
	return q.lastCorrect, nil
}

// SubmitAnswer selects option and submits it in one step.
func (q *QuizSession) SubmitAnswer(option int) (bool, error) {
	if q.answered && q.checkPlayable() == nil {
		return false, ErrAlreadyAnswered
	}
	if err := q.Select(option); err != nil {
		return false, err
	}
	return q.Submit()
}

// Advance moves past an answered question. After the last question the quiz
// becomes complete.
func (q *QuizSession) Advance() error {
	if err := q.checkPlayable(); err != nil {
		return err
	}
	if !q.answered {
		return ErrNotAnswered
	}

	if q.index == len(q.questions)-1 {
		q.complete = true
		return nil
	}
	q.index++
	q.answered = false
	q.lastCorrect = false
	q.selected = -1
	return nil
}

// Restart begins a fresh pass from the first question.
func (q *QuizSession) Restart() {
	q.index = 0
	q.correctCount = 0
	q.selected = -1
	q.answered = false
	q.lastCorrect = false
	q.complete = false
}
