package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/mockroom/internal/config"
	"github.com/muesli/termenv"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionInterview     ConfigSection = "interview"
	SectionCall          ConfigSection = "call"
	SectionTranscription ConfigSection = "transcription"
	SectionGrading       ConfigSection = "grading"
	SectionServer        ConfigSection = "server"
	SectionAudio         ConfigSection = "audio"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run starts the menu-driven configuration editor. cfg is edited in place
// and returned when the user saves.
func Run(cfg *config.Config) (*ConfigureResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		var editErr error
		switch section {
		case SectionSaveExit:
			if err := cfg.Validate(); err != nil {
				fmt.Println(StyleError.Render("Configuration is invalid: " + err.Error()))
				if !confirm("Keep editing?", "Discarding leaves the file untouched") {
					return &ConfigureResult{Cancelled: true}, nil
				}
				continue
			}
			if confirm("Save configuration?", summary(cfg)) {
				return &ConfigureResult{Config: cfg}, nil
			}
		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil
		case SectionInterview:
			editErr = editInterview(cfg)
		case SectionCall:
			editErr = editCall(cfg)
		case SectionTranscription:
			editErr = editTranscription(cfg)
		case SectionGrading:
			editErr = editGrading(cfg)
		case SectionServer:
			editErr = editServer(cfg)
		case SectionAudio:
			editErr = editAudio(cfg)
		case SectionNotifications:
			editErr = editNotifications(cfg)
		}
		if editErr != nil {
			// esc inside a section returns to the menu
			continue
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(formatInterviewLabel(cfg), SectionInterview),
		huh.NewOption(formatCallLabel(cfg), SectionCall),
		huh.NewOption(formatTranscriptionLabel(cfg), SectionTranscription),
		huh.NewOption(formatGradingLabel(cfg), SectionGrading),
		huh.NewOption(formatServerLabel(cfg), SectionServer),
		huh.NewOption(formatAudioLabel(cfg), SectionAudio),
		huh.NewOption(formatNotificationsLabel(cfg), SectionNotifications),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

func confirm(title, desc string) bool {
	ok := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(desc).
				Value(&ok),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return false
	}
	return ok
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
