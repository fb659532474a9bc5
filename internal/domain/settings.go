package domain

const (
	DefaultTheme = "cyberpunk"
	DefaultFont  = "mono"
)

// Themes and Fonts are the fixed sets a Settings value may point into.
var (
	Themes = []string{"cyberpunk", "matrix"}
	Fonts  = []string{"mono", "code", "consolas", "cascadia", "source", "roboto", "inter", "system"}
)

// Settings holds the visual preferences of the dashboard.
type Settings struct {
	Theme string `json:"theme"`
	Font  string `json:"font"`
}

// DefaultSettings returns the fallback settings.
func DefaultSettings() Settings {
	return Settings{Theme: DefaultTheme, Font: DefaultFont}
}

// Normalize replaces unset or unknown values with their defaults.
func (s Settings) Normalize() Settings {
	if !contains(Themes, s.Theme) {
		s.Theme = DefaultTheme
	}
	if !contains(Fonts, s.Font) {
		s.Font = DefaultFont
	}
	return s
}

func contains(set []string, v string) bool {
	for _, item := range set {
		if item == v {
			return true
		}
	}
	return false
}
