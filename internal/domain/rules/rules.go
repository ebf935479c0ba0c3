// Package rules contains the pure decision functions for set and match
// completion. This is the only place scoring rules are evaluated; rule
// changes require no other component change.
package rules

import "github.com/okian/matchpoint/internal/domain/model"

// IsSetComplete reports whether the active set is over for the given scores
// and scoring mode.
//
// GoldenPoint is sudden death at the target: first team to reach pointsToWin
// wins outright, even by a single point. WinByTwo additionally requires the
// leader to be ahead by at least two.
func IsSetComplete(score1, score2, pointsToWin int, mode model.ScoringMode) bool {
	if pointsToWin <= 0 {
		return false
	}
	leader, trailer := score1, score2
	if score2 > score1 {
		leader, trailer = score2, score1
	}
	switch mode {
	case model.GoldenPoint:
		return leader >= pointsToWin
	case model.WinByTwo:
		return leader >= pointsToWin && leader-trailer >= 2
	default:
		return false
	}
}

// IsMatchComplete reports whether either team has won a best-of-N majority
// of sets. A match of totalSets is decided once a team holds more than
// totalSets/2 set wins, even if later sets are unplayed.
func IsMatchComplete(setsWon1, setsWon2, totalSets int) bool {
	if totalSets <= 0 {
		return false
	}
	need := SetsToWin(totalSets)
	return setsWon1 >= need || setsWon2 >= need
}

// SetsToWin returns the majority threshold for a best-of-totalSets match.
func SetsToWin(totalSets int) int {
	return totalSets/2 + 1
}
