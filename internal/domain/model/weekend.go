// Package model contains domain models passed between layers.
package model

import "sort"

// Roster is the lineup held before the weekend's changes.
type Roster struct {
	Drivers      []string `json:"drivers" koanf:"drivers" validate:"len=5,unique,dive,required"`
	Constructors []string `json:"constructors" koanf:"constructors" validate:"len=2,unique,dive,required"`
}

// Weekend holds everything the optimizer needs for one race weekend.
// Pools left empty default to the keys of the matching score mapping.
type Weekend struct {
	Track             string             `json:"track" koanf:"track"`
	Drivers           []string           `json:"drivers,omitempty" koanf:"drivers"`
	Constructors      []string           `json:"constructors,omitempty" koanf:"constructors"`
	DriverScores      map[string]int     `json:"driver_scores" koanf:"driver_scores" validate:"min=1"`
	ConstructorScores map[string]int     `json:"constructor_scores" koanf:"constructor_scores" validate:"min=1"`
	DriverPrices      map[string]float64 `json:"driver_prices" koanf:"driver_prices" validate:"min=1"`
	ConstructorPrices map[string]float64 `json:"constructor_prices" koanf:"constructor_prices" validate:"min=1"`
	Roster            Roster             `json:"roster" koanf:"roster"`
	// Budget overrides the value derived from the roster when set.
	Budget           *float64 `json:"budget,omitempty" koanf:"budget" validate:"omitempty,gte=0"`
	RemainingCostCap float64  `json:"remaining_cost_cap" koanf:"remaining_cost_cap" validate:"gte=0"`
	UseWildcard      bool     `json:"use_wildcard" koanf:"use_wildcard"`
}

// DriverPool returns the de-duplicated candidate drivers.
func (w Weekend) DriverPool() []string {
	return resolvePool(w.Drivers, w.DriverScores)
}

// ConstructorPool returns the de-duplicated candidate constructors.
func (w Weekend) ConstructorPool() []string {
	return resolvePool(w.Constructors, w.ConstructorScores)
}

func resolvePool(ids []string, scores map[string]int) []string {
	if len(ids) == 0 {
		out := make([]string, 0, len(scores))
		for id := range scores {
			out = append(out, id)
		}
		sort.Strings(out)
		return out
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Float64 returns a pointer to v. Useful for setting Weekend.Budget.
func Float64(v float64) *float64 { return &v }

// Task is a queued optimization job.
type Task struct {
	JobID   string
	Weekend Weekend
}
