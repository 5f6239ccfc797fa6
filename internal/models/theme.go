package models

type ThemeMode string

const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
)

func (m ThemeMode) Valid() bool {
	return m == ThemeLight || m == ThemeDark
}

// Opposite returns the other mode. Invalid modes map to light.
func (m ThemeMode) Opposite() ThemeMode {
	if m == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

type TextColors struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Tertiary  string `json:"tertiary"`
}

type CardColors struct {
	Background string `json:"background"`
	Border     string `json:"border"`
}

type PairColors struct {
	Background string `json:"background"`
	Text       string `json:"text"`
}

type ThemeColors struct {
	Background  string     `json:"background"`
	Surface     string     `json:"surface"`
	Primary     string     `json:"primary"`
	Secondary   string     `json:"secondary"`
	Text        TextColors `json:"text"`
	Border      string     `json:"border"`
	Shadow      string     `json:"shadow"`
	Card        CardColors `json:"card"`
	Badge       PairColors `json:"badge"`
	Rating      PairColors `json:"rating"`
	Placeholder PairColors `json:"placeholder"`
}

type Theme struct {
	Mode   ThemeMode   `json:"mode"`
	Colors ThemeColors `json:"colors"`
}

var LightTheme = Theme{
	Mode: ThemeLight,
	Colors: ThemeColors{
		Background: "#F9FAFB",
		Surface:    "#FFFFFF",
		Primary:    "#1F2937",
		Secondary:  "#6B7280",
		Text: TextColors{
			Primary:   "#111827",
			Secondary: "#6B7280",
			Tertiary:  "#9CA3AF",
		},
		Border:      "#F3F4F6",
		Shadow:      "#000000",
		Card:        CardColors{Background: "#FFFFFF", Border: "#F3F4F6"},
		Badge:       PairColors{Background: "#E0E7FF", Text: "#3730A3"},
		Rating:      PairColors{Background: "#F59E0B", Text: "#FFFFFF"},
		Placeholder: PairColors{Background: "#F3F4F6", Text: "#6B7280"},
	},
}

var DarkTheme = Theme{
	Mode: ThemeDark,
	Colors: ThemeColors{
		Background: "#0F172A",
		Surface:    "#1E293B",
		Primary:    "#F8FAFC",
		Secondary:  "#94A3B8",
		Text: TextColors{
			Primary:   "#F8FAFC",
			Secondary: "#CBD5E1",
			Tertiary:  "#94A3B8",
		},
		Border:      "#334155",
		Shadow:      "#000000",
		Card:        CardColors{Background: "#1E293B", Border: "#334155"},
		Badge:       PairColors{Background: "#3B82F6", Text: "#FFFFFF"},
		Rating:      PairColors{Background: "#F59E0B", Text: "#FFFFFF"},
		Placeholder: PairColors{Background: "#374151", Text: "#9CA3AF"},
	},
}

// ThemeFor is the fixed mode -> palette lookup.
func ThemeFor(mode ThemeMode) Theme {
	if mode == ThemeDark {
		return DarkTheme
	}
	return LightTheme
}
