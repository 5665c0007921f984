// Package score folds recorded guesses into team scores and decides the
// winner of a game.
package score

import "aliasgame/internal/model"

// Tally returns +1 for every guessed word and -1 for every skipped one.
func Tally(guesses []model.Guess) int {
	total := 0
	for _, g := range guesses {
		if g.Guessed {
			total++
		} else {
			total--
		}
	}
	return total
}

// TallyRounds sums Tally over every round of a team.
func TallyRounds(rounds map[int][]model.Guess) int {
	total := 0
	for _, guesses := range rounds {
		total += Tally(guesses)
	}
	return total
}

// Winner returns the single team holding the highest score when that score
// reaches winningScore. A tie at the top yields no winner so play continues.
func Winner(scores map[string]int, winningScore int) (string, bool) {
	if len(scores) == 0 {
		return "", false
	}
	first := true
	top := 0
	for _, s := range scores {
		if first || s > top {
			top = s
			first = false
		}
	}
	if top < winningScore {
		return "", false
	}
	winner := ""
	for teamID, s := range scores {
		if s != top {
			continue
		}
		if winner != "" {
			return "", false
		}
		winner = teamID
	}
	return winner, true
}
