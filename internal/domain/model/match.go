// Package model contains domain models passed between layers.
package model

import "time"

// Status is the lifecycle state of a match.
type Status string

// Match statuses. COMPLETED and CANCELLED are terminal.
const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Terminal reports whether no further mutation is allowed in this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ScoringMode selects how set completion is decided.
type ScoringMode string

const (
	// GoldenPoint ends the set the instant either side reaches the
	// threshold, regardless of margin.
	GoldenPoint ScoringMode = "GOLDEN_POINT"
	// WinByTwo requires the leader to reach the threshold with at least a
	// two-point margin.
	WinByTwo ScoringMode = "WIN_BY_TWO"
)

// Valid reports whether the mode is one of the supported scoring modes.
func (m ScoringMode) Valid() bool {
	return m == GoldenPoint || m == WinByTwo
}

// Team is one side of a match.
type Team struct {
	Name      string   `json:"name"`
	PlayerIDs []string `json:"player_ids,omitempty"`
}

// SetResult is an archived set score. Entries never change once written.
type SetResult struct {
	SetNumber  int `json:"set_number"`
	Team1Score int `json:"team1_score"`
	Team2Score int `json:"team2_score"`
}

// Match is the authoritative scoring aggregate for a single match.
// It is owned exclusively by the match service; everyone else sees Snapshots.
type Match struct {
	ID           string
	TournamentID string
	Teams        [2]Team

	Status         Status
	Mode           ScoringMode
	PointsToWinSet int
	TotalSets      int

	// CurrentSet is 1-indexed and never exceeds TotalSets.
	CurrentSet    int
	Score1        int
	Score2        int
	CompletedSets []SetResult

	// SetCompletionCandidate is set when the rule engine considers the
	// active set complete and the referee has not yet confirmed it.
	SetCompletionCandidate bool

	StartedAt *time.Time

	// LastSequence is the sequence number of the latest committed score
	// event; snapshots are versioned by it.
	LastSequence uint64
}

// SetsWon counts archived sets won per team.
func (m *Match) SetsWon() (team1, team2 int) {
	for _, s := range m.CompletedSets {
		if s.Team1Score > s.Team2Score {
			team1++
		} else {
			team2++
		}
	}
	return team1, team2
}

// Clone returns a deep copy. Mutations are applied to a clone and swapped in
// only after the storage write commits.
func (m *Match) Clone() *Match {
	c := *m
	c.CompletedSets = make([]SetResult, len(m.CompletedSets))
	copy(c.CompletedSets, m.CompletedSets)
	c.Teams[0].PlayerIDs = append([]string(nil), m.Teams[0].PlayerIDs...)
	c.Teams[1].PlayerIDs = append([]string(nil), m.Teams[1].PlayerIDs...)
	if m.StartedAt != nil {
		t := *m.StartedAt
		c.StartedAt = &t
	}
	return &c
}

// Snapshot is the read model pushed to subscribers and served on resync.
func (m *Match) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		MatchID:                m.ID,
		Sequence:               m.LastSequence,
		Status:                 m.Status,
		CurrentSet:             m.CurrentSet,
		TotalSets:              m.TotalSets,
		Mode:                   m.Mode,
		CurrentScore:           [2]int{m.Score1, m.Score2},
		CompletedSets:          append([]SetResult(nil), m.CompletedSets...),
		SetCompletionCandidate: m.SetCompletionCandidate,
	}
	if m.StartedAt != nil {
		s.ElapsedSeconds = int64(now.Sub(*m.StartedAt).Seconds())
	}
	return s
}

// Snapshot mirrors the push/poll message shape.
type Snapshot struct {
	MatchID                string      `json:"match_id"`
	Sequence               uint64      `json:"sequence_number"`
	Status                 Status      `json:"status"`
	CurrentSet             int         `json:"current_set"`
	TotalSets              int         `json:"total_sets"`
	Mode                   ScoringMode `json:"scoring_mode"`
	CurrentScore           [2]int      `json:"current_score"`
	CompletedSets          []SetResult `json:"completed_sets"`
	SetCompletionCandidate bool        `json:"set_completion_candidate"`
	ElapsedSeconds         int64       `json:"elapsed_seconds,omitempty"`
}
