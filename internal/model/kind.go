package model

import (
	"strings"

	"juku-import/pkg/errors"
)

type ImportKind string

const (
	ImportKindStudent ImportKind = "student"
	ImportKindScore   ImportKind = "score"
)

func ParseImportKind(s string) (ImportKind, error) {
	switch ImportKind(strings.ToLower(strings.TrimSpace(s))) {
	case ImportKindStudent:
		return ImportKindStudent, nil
	case ImportKindScore:
		return ImportKindScore, nil
	}
	return "", errors.ErrUnknownKind
}

// Season is the seasonal course period an import belongs to.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonWinter Season = "winter"
)

var seasonLabels = map[Season]string{
	SeasonSpring: "春期",
	SeasonSummer: "夏期",
	SeasonWinter: "冬期",
}

// ParseSeason accepts either the code ("summer") or the Japanese label ("夏期").
func ParseSeason(s string) (Season, error) {
	s = strings.TrimSpace(s)
	if _, ok := seasonLabels[Season(strings.ToLower(s))]; ok {
		return Season(strings.ToLower(s)), nil
	}
	for season, label := range seasonLabels {
		if label == s {
			return season, nil
		}
	}
	return "", errors.ErrInvalidSeason
}

func (s Season) Label() string {
	if label, ok := seasonLabels[s]; ok {
		return label
	}
	return string(s)
}

func (s Season) Valid() bool {
	_, ok := seasonLabels[s]
	return ok
}
