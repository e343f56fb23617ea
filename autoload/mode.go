package autoload

import (
	"fmt"
	"strings"
)

// Tier is how closely a sibling filename matches the media filename. Lower is better.
type Tier int

const (
	TierExact Tier = iota
	TierPrefix
	TierContain
	TierFuzzy
	TierOther
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierPrefix:
		return "prefix"
	case TierContain:
		return "contain"
	case TierFuzzy:
		return "fuzzy"
	default:
		return "other"
	}
}

// Mode is the widest tier an autoloader accepts.
type Mode Tier

const (
	ModeExact   = Mode(TierExact)
	ModePrefix  = Mode(TierPrefix)
	ModeContain = Mode(TierContain)
	ModeFuzzy   = Mode(TierFuzzy)
	ModeAll     = Mode(TierOther)
)

var modeNames = map[string]Mode{
	"exact":   ModeExact,
	"prefix":  ModePrefix,
	"contain": ModeContain,
	"fuzzy":   ModeFuzzy,
	"all":     ModeAll,
}

// ParseMode reads a mode name from configuration.
func ParseMode(s string) (Mode, error) {
	m, ok := modeNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown autoload mode %q", s)
	}
	return m, nil
}

func (m Mode) String() string {
	if m == ModeAll {
		return "all"
	}
	return Tier(m).String()
}

// Accepts reports whether a candidate of tier t is loaded under this mode.
func (m Mode) Accepts(t Tier) bool {
	return t <= Tier(m)
}
