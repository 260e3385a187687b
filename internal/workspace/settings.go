package workspace

import (
	"image/color"

	"redline/internal/canvas"
	"redline/internal/config"
)

// Settings are scoped to one session.
type Settings struct {
	// WarnOnOverwrite shows a notice the first time a saved page is replaced.
	WarnOnOverwrite bool
	Canvas          canvas.Options

	overwriteWarned bool
}

// SettingsFromConfig derives session settings from the [annotation] section.
func SettingsFromConfig(cfg config.Annotation) Settings {
	opts := canvas.DefaultOptions()
	if cfg.BaseStrokeWidth > 0 {
		opts.BaseWidth = cfg.BaseStrokeWidth
	}
	if r, g, b, err := config.ParseHexColor(cfg.StrokeColor); err == nil {
		opts.Color = color.RGBA{R: r, G: g, B: b, A: 0xff}
	}
	return Settings{WarnOnOverwrite: cfg.WarnOnOverwrite, Canvas: opts}
}

// takeOverwriteWarning reports whether the overwrite notice should be shown now.
func (s *Settings) takeOverwriteWarning() bool {
	if !s.WarnOnOverwrite || s.overwriteWarned {
		return false
	}
	s.overwriteWarned = true
	return true
}
