// Package study holds the scoring rules and the review session state machines.
// Nothing in here performs I/O except through the CardSaver a caller injects.
package study

import "github.com/andrewpaige1/prepass-api/models"

// StrengthCounts is the strength distribution of a card collection.
type StrengthCounts struct {
	Weak   int `json:"weak"`
	Okay   int `json:"okay"`
	Strong int `json:"strong"`
}

// Total returns the number of counted cards.
func (c StrengthCounts) Total() int {
	return c.Weak + c.Okay + c.Strong
}

// CountStrengths tallies cards by strength.
func CountStrengths(cards []models.Flashcard) StrengthCounts {
	var c StrengthCounts
	for _, card := range cards {
		switch card.Strength {
		case models.StrengthStrong:
			c.Strong++
		case models.StrengthOkay:
			c.Okay++
		default:
			c.Weak++
		}
	}
	return c
}

// PassPercentage returns the 0-100 pass probability of cards. Strong cards are
// worth a full point, okay cards half a point, weak cards nothing. An empty
// collection yields 0; callers tell "no data" apart with their own flag.
func PassPercentage(cards []models.Flashcard) int {
	return CountStrengths(cards).PassPercentage()
}

// PassPercentage computes the pass probability for these counts.
func (c StrengthCounts) PassPercentage() int {
	total := c.Total()
	if total == 0 {
		return 0
	}
	// round-half-up of 100*(2*strong+okay)/(2*total), kept in integers
	return clampPercent((100*(2*c.Strong+c.Okay) + total) / (2 * total))
}

// QuizPercentage returns round(100*correct/total), or 0 when total is 0.
func QuizPercentage(correct, total int) int {
	if total <= 0 || correct <= 0 {
		return 0
	}
	return clampPercent((200*correct + total) / (2 * total))
}

// CardsNeededFor is the linear "study N more cards" heuristic shown on the
// dashboard: max(0, ceil((target-pass)*2)).
func CardsNeededFor(target, pass int) int {
	if pass >= target {
		return 0
	}
	return (target - pass) * 2
}

// Readiness labels a percentage the way the pass meter does.
func Readiness(percentage int) string {
	switch {
	case percentage < 40:
		return "Needs Work"
	case percentage < 70:
		return "Getting There"
	case percentage < 85:
		return "Almost Ready"
	default:
		return "Ready to Pass!"
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
