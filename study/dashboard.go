package study

import "github.com/andrewpaige1/prepass-api/models"

const (
	// DefaultTarget is the confidence the dashboard asks users to reach.
	DefaultTarget = 80
	// MinutesPerCard is the study time estimate per flashcard.
	MinutesPerCard = 2
)

// Dashboard is the summary view model for one user.
type Dashboard struct {
	HasData bool `json:"hasData"`
	// PassPercentage is nil when there is no data, so that "not applicable" never
	// renders as 0%.
	PassPercentage *int   `json:"passPercentage"`
	Readiness      string `json:"readiness,omitempty"`

	FlashcardsStudied int `json:"flashcardsStudied"`
	WeakCards         int `json:"weakCards"`
	OkayCards         int `json:"okayCards"`
	StrongCards       int `json:"strongCards"`
	StudyMinutes      int `json:"studyMinutes"`
	StreakDays        int `json:"streakDays"`
	CardsNeeded       int `json:"cardsNeeded"`
	Target            int `json:"target"`

	QuizzesAvailable int `json:"quizzesAvailable"`
	QuizzesCompleted int `json:"quizzesCompleted"`
	ImportantPoints  int `json:"importantPoints"`
}

// Extras carries counts that live outside the flashcard collection.
type Extras struct {
	Quizzes          int
	QuizzesCompleted int
	ImportantPoints  int
}

// Summarize derives the dashboard from a user's flashcards plus the counts of
// their other records.
func Summarize(cards []models.Flashcard, extras Extras) Dashboard {
	counts := CountStrengths(cards)
	studied := len(cards)
	pass := counts.PassPercentage()

	d := Dashboard{
		HasData:           studied > 0,
		FlashcardsStudied: studied,
		WeakCards:         counts.Weak,
		OkayCards:         counts.Okay,
		StrongCards:       counts.Strong,
		StudyMinutes:      studied * MinutesPerCard,
		StreakDays:        streakDays(studied),
		CardsNeeded:       CardsNeededFor(DefaultTarget, pass),
		Target:            DefaultTarget,
		QuizzesAvailable:  extras.Quizzes,
		QuizzesCompleted:  extras.QuizzesCompleted,
		ImportantPoints:   extras.ImportantPoints,
	}
	if d.HasData {
		d.PassPercentage = &pass
		d.Readiness = Readiness(pass)
	}
	return d
}

// streakDays is a placeholder until daily activity is recorded: any studied
// card counts as a one-day streak.
func streakDays(studied int) int {
	if studied > 0 {
		return 1
	}
	return 0
}
