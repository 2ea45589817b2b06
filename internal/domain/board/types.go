// Package board keeps the best K lineups of a search in a bounded, ordered
// structure.
package board

import (
	"github.com/okian/gridpick/internal/domain/model"
)

// Entry is one row of a finished board.
type Entry struct {
	Position int        `json:"position"`
	Rank     int        `json:"rank"`
	Team     model.Team `json:"team"`
}

// Board keeps the highest ranked teams up to a fixed capacity.
type Board interface {
	// Offer inserts team if it ranks inside the board. When the board grows
	// past capacity the lowest ranked team is evicted.
	// Returns true if the team was kept.
	Offer(team model.Team) bool
	// Admits reports whether a team with score could still enter the board.
	Admits(score int) bool

	// Best returns the highest ranked team.
	Best() (model.Team, bool)
	// Min returns the lowest ranked team, the one the next eviction removes.
	Min() (model.Team, bool)

	// TopN returns the top-N entries, highest first.
	TopN(n int) ([]Entry, error)
	// Teams returns every team on the board, highest first.
	Teams() []model.Team

	Len() int
	Cap() int
}
