package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Theme string

const (
	Light Theme = "Light"
	Dark  Theme = "Dark"
)

// Parse accepts any casing of "light" or "dark".
func Parse(s string) (Theme, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "light":
		return Light, true
	case "dark":
		return Dark, true
	}
	return "", false
}

type section struct {
	Base        string `toml:"base"`
	BorderColor string `toml:"borderColor,omitempty"`
}

type file struct {
	Theme section `toml:"theme"`
}

var presets = map[Theme]section{
	Light: {Base: "light"},
	Dark:  {Base: "dark", BorderColor: "mediumSlateBlue"},
}

// Load reads the persisted theme. Anything unreadable means Light.
func Load(path string) Theme {
	b, err := os.ReadFile(path)
	if err != nil {
		return Light
	}
	var f file
	if err := toml.Unmarshal(b, &f); err != nil {
		return Light
	}
	if strings.EqualFold(f.Theme.Base, "dark") {
		return Dark
	}
	return Light
}

func Save(path string, t Theme) error {
	sec, ok := presets[t]
	if !ok {
		return fmt.Errorf("unknown theme %q", t)
	}
	b, err := toml.Marshal(file{Theme: sec})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
