// Package repository stores a user's flashcards, quizzes and important points.
package repository

import (
	"context"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrewpaige1/prepass-api/apperr"
	"github.com/andrewpaige1/prepass-api/models"
)

// Store is the gorm-backed record store.
type Store struct {
	db *gorm.DB
}

// New creates a Store over db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Library is everything a user owns.
type Library struct {
	Flashcards      []models.Flashcard      `json:"flashcards"`
	Quizzes         []models.Quiz           `json:"quizzes"`
	ImportantPoints []models.ImportantPoint `json:"importantPoints"`
}

// Generated is one analysis result ready to be stored.
type Generated struct {
	Flashcards      []models.FlashcardDraft
	Quizzes         []models.QuizDraft
	ImportantPoints []string
	Note            models.Note
}

func newPublicID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", errors.Wrap(err, "failed to generate public id")
	}
	return id, nil
}

// UpsertUser makes sure a user row exists for authID and keeps the email fresh.
func (s *Store) UpsertUser(ctx context.Context, authID, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("auth_id = ?", authID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{AuthID: authID, Email: email}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, apperr.Persistence("Failed to create user", err)
		}
		return &user, nil
	}
	if err != nil {
		return nil, apperr.Persistence("Failed to load user", err)
	}

	if email != "" && user.Email != email {
		user.Email = email
		if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
			return nil, apperr.Persistence("Failed to update user", err)
		}
	}
	return &user, nil
}

// ListFlashcards returns the user's flashcards in creation order.
func (s *Store) ListFlashcards(ctx context.Context, userID string) ([]models.Flashcard, error) {
	cards := []models.Flashcard{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&cards).Error; err != nil {
		return nil, apperr.Persistence("Failed to fetch flashcards", err)
	}
	return cards, nil
}

// CreateFlashcards stores drafts as new weak cards.
func (s *Store) CreateFlashcards(ctx context.Context, userID string, drafts []models.FlashcardDraft) ([]models.Flashcard, error) {
	cards, err := buildFlashcards(userID, drafts)
	if err != nil {
		return nil, apperr.Persistence("Failed to save flashcards", err)
	}
	if len(cards) == 0 {
		return cards, nil
	}
	if err := s.db.WithContext(ctx).Create(&cards).Error; err != nil {
		return nil, apperr.Persistence("Failed to save flashcards", err)
	}
	return cards, nil
}

func buildFlashcards(userID string, drafts []models.FlashcardDraft) ([]models.Flashcard, error) {
	cards := make([]models.Flashcard, 0, len(drafts))
	for _, d := range drafts {
		publicID, err := newPublicID()
		if err != nil {
			return nil, err
		}
		cards = append(cards, models.Flashcard{
			PublicID: publicID,
			UserID:   userID,
			Front:    d.Front,
			Back:     d.Back,
			Strength: models.StrengthWeak,
		})
	}
	return cards, nil
}

// UpdateFlashcardStrength regrades one of the user's cards.
func (s *Store) UpdateFlashcardStrength(ctx context.Context, userID, publicID string, strength models.Strength) (*models.Flashcard, error) {
	if !strength.Valid() {
		return nil, apperr.Validation("Strength must be weak, okay or strong")
	}

	result := s.db.WithContext(ctx).
		Model(&models.Flashcard{}).
		Where("public_id = ? AND user_id = ?", publicID, userID).
		Update("strength", strength)
	if result.Error != nil {
		return nil, apperr.Persistence("Failed to update flashcard", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.NotFound("Flashcard not found")
	}

	var card models.Flashcard
	if err := s.db.WithContext(ctx).Where("public_id = ? AND user_id = ?", publicID, userID).First(&card).Error; err != nil {
		return nil, apperr.Persistence("Failed to reload flashcard", err)
	}
	return &card, nil
}

// SaveFlashcard writes a card's strength back. It lets a study session persist
// grades.
func (s *Store) SaveFlashcard(ctx context.Context, card *models.Flashcard) error {
	_, err := s.UpdateFlashcardStrength(ctx, card.UserID, card.PublicID, card.Strength)
	return err
}

// ListQuizzes returns the user's quiz questions in creation order.
func (s *Store) ListQuizzes(ctx context.Context, userID string) ([]models.Quiz, error) {
	quizzes := []models.Quiz{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&quizzes).Error; err != nil {
		return nil, apperr.Persistence("Failed to fetch quizzes", err)
	}
	return quizzes, nil
}

// CreateQuizzes stores drafts as quiz questions.
func (s *Store) CreateQuizzes(ctx context.Context, userID string, drafts []models.QuizDraft) ([]models.Quiz, error) {
	quizzes, err := buildQuizzes(userID, drafts)
	if err != nil {
		return nil, apperr.Persistence("Failed to save quizzes", err)
	}
	if len(quizzes) == 0 {
		return quizzes, nil
	}
	if err := s.db.WithContext(ctx).Create(&quizzes).Error; err != nil {
		return nil, apperr.Persistence("Failed to save quizzes", err)
	}
	return quizzes, nil
}

func buildQuizzes(userID string, drafts []models.QuizDraft) ([]models.Quiz, error) {
	quizzes := make([]models.Quiz, 0, len(drafts))
	for _, d := range drafts {
		publicID, err := newPublicID()
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, models.Quiz{
			PublicID:     publicID,
			UserID:       userID,
			Question:     d.Question,
			Options:      append([]string(nil), d.Options...),
			CorrectIndex: d.CorrectIndex,
		})
	}
	return quizzes, nil
}

// ListImportantPoints returns the user's important points in creation order.
func (s *Store) ListImportantPoints(ctx context.Context, userID string) ([]models.ImportantPoint, error) {
	points := []models.ImportantPoint{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&points).Error; err != nil {
		return nil, apperr.Persistence("Failed to fetch important points", err)
	}
	return points, nil
}

// CreateImportantPoints stores contents as important points.
func (s *Store) CreateImportantPoints(ctx context.Context, userID string, contents []string) ([]models.ImportantPoint, error) {
	points, err := buildPoints(userID, contents)
	if err != nil {
		return nil, apperr.Persistence("Failed to save important points", err)
	}
	if len(points) == 0 {
		return points, nil
	}
	if err := s.db.WithContext(ctx).Create(&points).Error; err != nil {
		return nil, apperr.Persistence("Failed to save important points", err)
	}
	return points, nil
}

func buildPoints(userID string, contents []string) ([]models.ImportantPoint, error) {
	points := make([]models.ImportantPoint, 0, len(contents))
	for _, c := range contents {
		publicID, err := newPublicID()
		if err != nil {
			return nil, err
		}
		points = append(points, models.ImportantPoint{PublicID: publicID, UserID: userID, Content: c})
	}
	return points, nil
}

// LoadLibrary fetches the three record sets concurrently.
func (s *Store) LoadLibrary(ctx context.Context, userID string) (*Library, error) {
	var lib Library
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cards, err := s.ListFlashcards(gctx, userID)
		lib.Flashcards = cards
		return err
	})
	g.Go(func() error {
		quizzes, err := s.ListQuizzes(gctx, userID)
		lib.Quizzes = quizzes
		return err
	})
	g.Go(func() error {
		points, err := s.ListImportantPoints(gctx, userID)
		lib.ImportantPoints = points
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &lib, nil
}

// SaveAnalysis stores everything generated by one analysis in a single
// transaction, together with the note record describing it.
func (s *Store) SaveAnalysis(ctx context.Context, userID string, gen Generated) (*Library, *models.Note, error) {
	cards, err := buildFlashcards(userID, gen.Flashcards)
	if err != nil {
		return nil, nil, apperr.Persistence("Failed to save flashcards", err)
	}
	quizzes, err := buildQuizzes(userID, gen.Quizzes)
	if err != nil {
		return nil, nil, apperr.Persistence("Failed to save quizzes", err)
	}
	points, err := buildPoints(userID, gen.ImportantPoints)
	if err != nil {
		return nil, nil, apperr.Persistence("Failed to save important points", err)
	}

	note := gen.Note
	note.UserID = userID
	note.FlashcardsGenerated = len(cards)
	note.QuizzesGenerated = len(quizzes)
	note.PointsGenerated = len(points)
	if note.PublicID, err = newPublicID(); err != nil {
		return nil, nil, apperr.Persistence("Failed to save note", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(cards) > 0 {
			if err := tx.Create(&cards).Error; err != nil {
				return apperr.Persistence("Failed to save flashcards", err)
			}
		}
		if len(quizzes) > 0 {
			if err := tx.Create(&quizzes).Error; err != nil {
				return apperr.Persistence("Failed to save quizzes", err)
			}
		}
		if len(points) > 0 {
			if err := tx.Create(&points).Error; err != nil {
				return apperr.Persistence("Failed to save important points", err)
			}
		}
		if err := tx.Create(&note).Error; err != nil {
			return apperr.Persistence("Failed to save note", err)
		}
		return nil
	})
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			err = apperr.Persistence("Failed to save generated content", err)
		}
		return nil, nil, err
	}

	return &Library{Flashcards: cards, Quizzes: quizzes, ImportantPoints: points}, &note, nil
}

// DeleteAll removes every flashcard, quiz, important point, note and quiz
// result of the user. Either everything goes or nothing does.
func (s *Store) DeleteAll(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.Flashcard{},
			&models.Quiz{},
			&models.ImportantPoint{},
			&models.Note{},
			&models.QuizResult{},
		} {
			if err := tx.Unscoped().Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Persistence("Failed to delete data", err)
	}
	return nil
}

// ListNotes returns the user's analysis history, newest first.
func (s *Store) ListNotes(ctx context.Context, userID string) ([]models.Note, error) {
	notes := []models.Note{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).Find(&notes).Error; err != nil {
		return nil, apperr.Persistence("Failed to fetch notes", err)
	}
	return notes, nil
}

// DeleteNote removes one entry of the analysis history. Generated content stays.
func (s *Store) DeleteNote(ctx context.Context, userID, publicID string) error {
	result := s.db.WithContext(ctx).Where("public_id = ? AND user_id = ?", publicID, userID).Delete(&models.Note{})
	if result.Error != nil {
		return apperr.Persistence("Failed to delete note", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("Note not found")
	}
	return nil
}

// RecordQuizResult stores the outcome of a completed quiz pass.
func (s *Store) RecordQuizResult(ctx context.Context, userID string, correct, total, percentage int) (*models.QuizResult, error) {
	result := models.QuizResult{
		UserID:       userID,
		CorrectCount: correct,
		Total:        total,
		Percentage:   percentage,
	}
	if err := s.db.WithContext(ctx).Create(&result).Error; err != nil {
		return nil, apperr.Persistence("Failed to save quiz result", err)
	}
	return &result, nil
}

// CountQuizResults returns how many quiz passes the user has completed.
func (s *Store) CountQuizResults(ctx context.Context, userID string) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.QuizResult{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, apperr.Persistence("Failed to count quiz results", err)
	}
	return int(n), nil
}
