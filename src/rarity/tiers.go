package rarity

// Tier is one of the four card rarity levels.
type Tier string

// The tiers ordered from the rarest to the most common.
const (
	Legendary Tier = "LEGENDARY"
	Epic      Tier = "EPIC"
	Rare      Tier = "RARE"
	Common    Tier = "COMMON"
)

// Tiers returns all tiers ordered from the rarest to the most common.
func Tiers() []Tier {
	return []Tier{Legendary, Epic, Rare, Common}
}

// Rank returns the position of the tier in the rarity order. Zero is the rarest.
// Unknown tiers rank as Common.
func (t Tier) Rank() int {
	switch t {
	case Legendary:
		return 0
	case Epic:
		return 1
	case Rare:
		return 2
	default:
		return 3
	}
}

// RarerThan reports whether t is strictly rarer than other.
func (t Tier) RarerThan(other Tier) bool {
	return t.Rank() < other.Rank()
}

// Info is the static display metadata of a tier. It is not computed from any
// artist data.
type Info struct {
	Name        string `json:"name" yaml:"name"`
	Color       string `json:"color" yaml:"color"`
	Gradient    string `json:"gradient" yaml:"gradient"`
	Shadow      string `json:"shadow" yaml:"shadow"`
	Animation   string `json:"animation" yaml:"animation"`
	DropRate    string `json:"drop_rate" yaml:"drop_rate"`
	Description string `json:"description" yaml:"description"`
}

var tierInfo = map[Tier]Info{
	Common: {
		Name:        "Common",
		Color:       "#6B7280",
		Gradient:    "common-gradient",
		Shadow:      "common",
		Animation:   "none",
		DropRate:    "60%",
		Description: "Newcomers and rising talents",
	},
	Rare: {
		Name:        "Rare",
		Color:       "#3B82F6",
		Gradient:    "rare-gradient",
		Shadow:      "rare",
		Animation:   "rare-sparkle",
		DropRate:    "25%",
		Description: "Established artists with growing recognition",
	},
	Epic: {
		Name:        "Epic",
		Color:       "#8B5CF6",
		Gradient:    "epic-gradient",
		Shadow:      "epic",
		Animation:   "epic-shimmer",
		DropRate:    "12%",
		Description: "Major artists with significant Tomorrowland history",
	},
	Legendary: {
		Name:        "Legendary",
		Color:       "#F59E0B",
		Gradient:    "legendary-gradient",
		Shadow:      "legendary",
		Animation:   "legendary-pulse",
		DropRate:    "3%",
		Description: "Tomorrowland legends and global superstars",
	},
}

// basePercentage is the nominal drop rate of each tier as a number.
var basePercentage = map[Tier]float64{
	Legendary: 3.0,
	Epic:      12.0,
	Rare:      25.0,
	Common:    60.0,
}

// Info returns the display metadata for the tier. Unknown tiers get the
// Common metadata.
func (t Tier) Info() Info {
	return Lookup(string(t))
}

// Lookup returns the metadata for a tier by its name. Names which do not match
// any tier resolve to Common.
func Lookup(name string) Info {
	if info, ok := tierInfo[Tier(name)]; ok {
		return info
	}
	return tierInfo[Common]
}
