package study

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/andrewpaige1/prepass-api/models"
)

// ErrInvalidStrength is returned when a grade is not weak, okay or strong.
var ErrInvalidStrength = errors.New("strength must be weak, okay or strong")

// CardSaver persists a regraded card.
type CardSaver interface {
	SaveFlashcard(ctx context.Context, card *models.Flashcard) error
}

// FlashcardSession walks an ordered deck of flashcards.
type FlashcardSession struct {
	cards    []models.Flashcard
	index    int
	revealed bool

	saver CardSaver
	rng   *rand.Rand
}

// SessionOption configures a FlashcardSession.
type SessionOption func(*FlashcardSession)

// WithRand makes shuffles draw from r.
func WithRand(r *rand.Rand) SessionOption {
	return func(s *FlashcardSession) {
		s.rng = r
	}
}

// NewFlashcardSession starts a session over a copy of cards. Grades are written
// through saver; a nil saver keeps grades in memory only.
func NewFlashcardSession(cards []models.Flashcard, saver CardSaver, opts ...SessionOption) *FlashcardSession {
	s := &FlashcardSession{
		cards: append([]models.Flashcard(nil), cards...),
		saver: saver,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Empty reports whether there is no card to show.
func (s *FlashcardSession) Empty() bool {
	return len(s.cards) == 0
}

// Len returns the number of cards in the deck.
func (s *FlashcardSession) Len() int {
	return len(s.cards)
}

// Index returns the position of the current card.
func (s *FlashcardSession) Index() int {
	return s.index
}

// Revealed reports whether the current card shows its back.
func (s *FlashcardSession) Revealed() bool {
	return s.revealed
}

// Current returns the card under the cursor.
func (s *FlashcardSession) Current() (models.Flashcard, bool) {
	if s.Empty() {
		return models.Flashcard{}, false
	}
	return s.cards[s.index], true
}

// Cards returns a copy of the deck in session order.
func (s *FlashcardSession) Cards() []models.Flashcard {
	return append([]models.Flashcard(nil), s.cards...)
}

// Counts returns the strength distribution of the deck.
func (s *FlashcardSession) Counts() StrengthCounts {
	return CountStrengths(s.cards)
}

// PassPercentage returns the deck's current pass probability.
func (s *FlashcardSession) PassPercentage() int {
	return PassPercentage(s.cards)
}

// GradeCurrent sets the strength of the current card and writes it through the
// saver. When the save fails the previous strength is restored and the error is
// returned; the cursor never moves.
func (s *FlashcardSession) GradeCurrent(ctx context.Context, strength models.Strength) error {
	if s.Empty() {
		return nil
	}
	if !strength.Valid() {
		return ErrInvalidStrength
	}

	card := &s.cards[s.index]
	previous := card.Strength
	card.Strength = strength

	if s.saver == nil {
		return nil
	}
	if err := s.saver.SaveFlashcard(ctx, card); err != nil {
		card.Strength = previous
		return err
	}
	return nil
}

// Next moves to the following card, wrapping to the first.
func (s *FlashcardSession) Next() {
	if s.Empty() {
		return
	}
	s.index = (s.index + 1) % len(s.cards)
	s.revealed = false
}

// Previous moves to the preceding card, wrapping to the last.
func (s *FlashcardSession) Previous() {
	if s.Empty() {
		return
	}
	s.index = (s.index - 1 + len(s.cards)) % len(s.cards)
	s.revealed = false
}

// Shuffle reorders the deck uniformly at random and returns to the first card.
func (s *FlashcardSession) Shuffle() {
	swap := func(i, j int) {
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	}
	if s.rng != nil {
		s.rng.Shuffle(len(s.cards), swap)
	} else {
		rand.Shuffle(len(s.cards), swap)
	}
	s.index = 0
	s.revealed = false
}

// Restart returns to the first card. Grades are kept.
func (s *FlashcardSession) Restart() {
	s.index = 0
	s.revealed = false
}

// Flip toggles between the front and the back of the current card.
func (s *FlashcardSession) Flip() {
	if s.Empty() {
		return
	}
	s.revealed = !s.revealed
}
