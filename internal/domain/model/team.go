package model

import (
	"fmt"
	"strings"
)

// Team is one candidate lineup produced by the optimizer.
type Team struct {
	Score               int      `json:"score"`
	Drivers             []string `json:"drivers"`
	Constructors        []string `json:"constructors"`
	TurboDriver         string   `json:"turbo_driver"`
	SubstitutionsNeeded int      `json:"substitutions_needed"`
	ProposedValue       float64  `json:"proposed_value"`
	RemainingCap        float64  `json:"remaining_cap"`
}

// Key identifies the lineup as D1,D2,D3,D4,D5|C1,C2.
// Drivers and constructors are expected in ascending order.
func (t Team) Key() string {
	return strings.Join(t.Drivers, ",") + "|" + strings.Join(t.Constructors, ",")
}

// Precedes is the board order: a team with (aScore, aKey) ranks ahead of
// one with (bScore, bKey) when its score is higher, or the scores tie and
// its key is smaller.
func Precedes(aScore int, aKey string, bScore int, bKey string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aKey < bKey
}

// RanksAbove reports whether t sorts ahead of o on a board.
func (t Team) RanksAbove(o Team) bool {
	return Precedes(t.Score, t.Key(), o.Score, o.Key())
}

func (t Team) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Constructor: %s\n", formatIDs(t.Constructors))
	fmt.Fprintf(&b, "Drivers: %s\n", formatIDs(t.Drivers))
	fmt.Fprintf(&b, "Turbo Driver: %s\n", t.TurboDriver)
	fmt.Fprintf(&b, "Substitutions Needed: %d\n", t.SubstitutionsNeeded)
	fmt.Fprintf(&b, "Proposed Team Value: %.2f\n", t.ProposedValue)
	fmt.Fprintf(&b, "Remaining Cost Cap: %.2f", t.RemainingCap)
	return b.String()
}

func formatIDs(ids []string) string {
	return "(" + strings.Join(ids, ", ") + ")"
}
