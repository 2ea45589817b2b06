package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/gridpick/internal/domain/model"
)

// weekendDelim splits nested keys. Driver and constructor ids may contain
// dots, so the usual "." cannot be used.
const weekendDelim = "/"

// LoadWeekend reads a weekend description from a YAML (or JSON) file.
func LoadWeekend(path string) (model.Weekend, error) {
	var w model.Weekend
	if path == "" {
		return w, fmt.Errorf("%w: no file given", ErrLoadWeekend)
	}
	k := koanf.New(weekendDelim)
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return w, fmt.Errorf("%w: %s: %w", ErrLoadWeekend, path, err)
	}
	if err := k.UnmarshalWithConf("", &w, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return w, fmt.Errorf("%w: %s: %w", ErrLoadWeekend, path, err)
	}
	return w, nil
}
