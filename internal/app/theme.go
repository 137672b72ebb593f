package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// ViewerTheme is the dark theme used around the spectrogram.
type ViewerTheme struct{}

var _ fyne.Theme = (*ViewerTheme)(nil)

func (t *ViewerTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return color.NRGBA{R: 0x14, G: 0x14, B: 0x18, A: 0xFF} // matches the frame background
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x00, G: 0xB8, B: 0xD4, A: 0xFF}
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0xFF, G: 0xD5, B: 0x00, A: 0x80}
	default:
		return theme.DefaultTheme().Color(name, theme.VariantDark)
	}
}

func (t *ViewerTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *ViewerTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *ViewerTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 2 // keep the toolbar tight above the canvas
	default:
		return theme.DefaultTheme().Size(name)
	}
}
