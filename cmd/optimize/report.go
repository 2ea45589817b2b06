package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/okian/gridpick/internal/domain/board"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/optimizer"
)

// printReport writes the human readable search report.
func printReport(out io.Writer, w model.Weekend, res optimizer.Result) { //nolint:gocritic // hugeParam: read once
	printDriverScores(out, w)

	fmt.Fprintln(out, "=== Current Team ===")
	fmt.Fprintf(out, "Constructors: (%s)\n", strings.Join(w.Roster.Constructors, ", "))
	fmt.Fprintf(out, "Drivers: (%s)\n", strings.Join(w.Roster.Drivers, ", "))
	if value, ok := teamValue(w); ok {
		fmt.Fprintf(out, "Current Team Value: %.1f\n", value)
	}
	fmt.Fprintf(out, "Current Available Value: %.2f\n", w.RemainingCostCap)
	if w.Budget != nil {
		fmt.Fprintf(out, "Budget: %.1f\n", res.Budget)
	}
	fmt.Fprintln(out)

	printBoard(out, res.Considered, res.Affordable, w.UseWildcard, res.Teams)
}

// printDriverScores lists the predicted driver scores, best first.
func printDriverScores(out io.Writer, w model.Weekend) { //nolint:gocritic // hugeParam: read once
	if w.Track != "" {
		fmt.Fprintf(out, "=== Predicted Driver Scores for %s ===\n", capitalize(w.Track))
	} else {
		fmt.Fprintln(out, "=== Predicted Driver Scores ===")
	}
	ids := make([]string, 0, len(w.DriverScores))
	for id := range w.DriverScores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := w.DriverScores[ids[i]], w.DriverScores[ids[j]]
		if a != b {
			return a > b
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		fmt.Fprintf(out, "%s: %d\n", id, w.DriverScores[id])
	}
	fmt.Fprintln(out)
}

// teamValue is the incumbent roster at this weekend's prices plus the
// unspent cap. ok is false when an incumbent has no price.
func teamValue(w model.Weekend) (float64, bool) { //nolint:gocritic // hugeParam: read once
	total := w.RemainingCostCap
	for _, id := range w.Roster.Drivers {
		price, ok := w.DriverPrices[id]
		if !ok {
			return 0, false
		}
		total += price
	}
	for _, id := range w.Roster.Constructors {
		price, ok := w.ConstructorPrices[id]
		if !ok {
			return 0, false
		}
		total += price
	}
	return total, true
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// printBoard writes the counts and one block per ranked team.
func printBoard(out io.Writer, considered, affordable int64, wildcard bool, entries []board.Entry) {
	fmt.Fprintf(out, "Total Number of Team Combinations: %d\n", considered)
	fmt.Fprintf(out, "Total Number of Team Combinations I can afford: %d\n", affordable)
	fmt.Fprintf(out, "Explored all of the valid %d teams.\n\n", affordable)
	if wildcard {
		fmt.Fprint(out, "Using wildcard!\n\n")
	}
	for _, e := range entries {
		fmt.Fprintf(out, "=== TEAM AT POSITION %d WITH SCORE %d ===\n", e.Position, e.Team.Score)
		fmt.Fprintln(out, e.Team.String())
		fmt.Fprintln(out)
	}
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
