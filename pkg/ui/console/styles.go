package console

import "github.com/charmbracelet/lipgloss"

// palette holds the console colors; roles reuse them so the card for each
// reply kind stays recognizable.
var palette = struct {
	brand, brandText          lipgloss.Color
	user, bot, media, failure lipgloss.Color
	dark, darker, panel       lipgloss.Color
	muted, soft, warm         lipgloss.Color
}{
	brand: "29", brandText: "230",
	user: "214", bot: "42", media: "109", failure: "203",
	dark: "234", darker: "233", panel: "236",
	muted: "244", soft: "151", warm: "222",
}

type theme struct {
	header     lipgloss.Style
	headerMeta lipgloss.Style
	divider    lipgloss.Style
	bootLine   lipgloss.Style
	bootDone   lipgloss.Style
	userBox    lipgloss.Style
	userTitle  lipgloss.Style
	botBox     lipgloss.Style
	botTitle   lipgloss.Style
	mediaBox   lipgloss.Style
	mediaTitle lipgloss.Style
	errorBox   lipgloss.Style
	errorTitle lipgloss.Style
	status     lipgloss.Style
	statusBusy lipgloss.Style
	statusErr  lipgloss.Style
	hint       lipgloss.Style
	inputLabel lipgloss.Style
	input      lipgloss.Style
	viewport   lipgloss.Style
}

func card(border lipgloss.Border, accent, background lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(border).
		BorderForeground(accent).
		Background(background).
		Padding(0, 1)
}

func badge(foreground, background lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(foreground).Background(background).Padding(0, 1)
}

func fg(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(color)
}

func defaultTheme() theme {
	p := palette

	return theme{
		header:     badge(p.brandText, p.brand),
		headerMeta: fg(p.soft),
		divider:    fg("36"),
		bootLine:   fg("115"),
		bootDone:   fg("114").Bold(true),

		userBox:    card(lipgloss.RoundedBorder(), p.user, "235"),
		userTitle:  badge("16", p.user),
		botBox:     card(lipgloss.RoundedBorder(), p.bot, p.dark),
		botTitle:   badge("16", p.bot),
		mediaBox:   card(lipgloss.NormalBorder(), p.media, p.panel).Foreground(lipgloss.Color("252")),
		mediaTitle: badge("16", p.media),
		errorBox:   card(lipgloss.RoundedBorder(), p.failure, "52").Foreground(p.failure),
		errorTitle: badge("231", "160"),

		status:     fg("250").Bold(true),
		statusBusy: fg(p.warm).Bold(true),
		statusErr:  fg(p.failure).Bold(true),
		hint:       fg(p.muted),
		inputLabel: fg("229").Bold(true),
		input:      card(lipgloss.RoundedBorder(), "36", p.panel),
		viewport:   card(lipgloss.ThickBorder(), p.brand, p.darker),
	}
}
