package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/mockroom/internal/config"
	"github.com/leonardotrapani/mockroom/internal/language"
)

func editInterview(cfg *config.Config) error {
	id := cfg.Interview.ID
	title := cfg.Interview.Title
	intro := cfg.Interview.Introduction
	questions := formatQuestions(cfg.Interview.Questions)
	duration := strconv.Itoa(cfg.Interview.DurationSec)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Interview ID").
				Description("Identifier used in logs and feedback").
				Value(&id),
			huh.NewInput().
				Title("Title").
				Value(&title),
			huh.NewText().
				Title("Introduction").
				Description("What the interviewer says about the role before asking anything").
				Lines(4).
				Value(&intro).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("introduction is required")
					}
					return nil
				}),
			huh.NewText().
				Title("Questions").
				Description("One question per line, asked in order").
				Lines(8).
				Value(&questions),
			huh.NewInput().
				Title("Duration (seconds)").
				Description("The interviewer wraps up 30 seconds before the end").
				Value(&duration).
				Validate(validatePositiveInt),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Interview.ID = strings.TrimSpace(id)
	cfg.Interview.Title = strings.TrimSpace(title)
	cfg.Interview.Introduction = strings.TrimSpace(intro)
	cfg.Interview.Questions = parseQuestions(questions)
	cfg.Interview.DurationSec, _ = strconv.Atoi(strings.TrimSpace(duration))
	return nil
}

func editCall(cfg *config.Config) error {
	signaling := cfg.Call.SignalingURL
	webrtcURL := cfg.Call.WebRTCURL
	model := cfg.Call.Model
	ice := strings.Join(cfg.Call.ICEServers, "\n")
	timeout := cfg.Call.Timeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Signaling URL").
				Description("Companion server that mints session credentials").
				Value(&signaling).
				Validate(validateOptionalURL("http", "https")),
			huh.NewInput().
				Title("WebRTC URL").
				Description("Leave empty to use the URL returned with the credential").
				Value(&webrtcURL).
				Validate(validateOptionalURL("http", "https")),
			huh.NewInput().
				Title("Model").
				Value(&model),
			huh.NewText().
				Title("ICE servers").
				Description("One stun: or turn: URL per line").
				Lines(3).
				Value(&ice),
			huh.NewInput().
				Title("Timeout").
				Value(&timeout).
				Validate(validateDuration),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Call.SignalingURL = strings.TrimSpace(signaling)
	cfg.Call.WebRTCURL = strings.TrimSpace(webrtcURL)
	cfg.Call.Model = strings.TrimSpace(model)
	cfg.Call.ICEServers = parseQuestions(ice)
	cfg.Call.Timeout, _ = time.ParseDuration(strings.TrimSpace(timeout))
	return nil
}

func editTranscription(cfg *config.Config) error {
	enabled := cfg.Transcription.Enabled
	endpoint := cfg.Transcription.Endpoint
	deployment := cfg.Transcription.Deployment
	apiKey := cfg.Transcription.APIKey
	lang := language.Normalize(cfg.Transcription.Language)
	prompt := cfg.Transcription.Prompt

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Show live captions?").
				Value(&enabled),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Azure endpoint").
				Description("Empty falls back to the environment").
				Value(&endpoint).
				Validate(validateOptionalURL("https", "http")),
			huh.NewInput().
				Title("Deployment").
				Value(&deployment),
			huh.NewInput().
				Title("API key").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewSelect[string]().
				Title("Language").
				Description("Spoken language of the interview").
				Options(languageOptions()...).
				Height(10).
				Value(&lang),
			huh.NewInput().
				Title("Prompt").
				Description("Vocabulary hint for the transcriber").
				Value(&prompt),
		).WithHideFunc(func() bool { return !enabled }),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Transcription.Enabled = enabled
	cfg.Transcription.Endpoint = strings.TrimSpace(endpoint)
	cfg.Transcription.Deployment = strings.TrimSpace(deployment)
	cfg.Transcription.APIKey = strings.TrimSpace(apiKey)
	cfg.Transcription.Language = lang
	cfg.Transcription.Prompt = strings.TrimSpace(prompt)
	return nil
}

func editGrading(cfg *config.Config) error {
	enabled := cfg.Grading.Enabled
	gradeURL := cfg.Grading.URL
	endpoint := cfg.Grading.Endpoint
	deployment := cfg.Grading.Deployment
	apiKey := cfg.Grading.APIKey

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Grade answers?").
				Description("Each final caption is scored by the grading service").
				Value(&enabled),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Grading URL").
				Value(&gradeURL).
				Validate(validateOptionalURL("http", "https")),
			huh.NewInput().
				Title("Assessor endpoint").
				Description("Used by `mockroom serve`; empty reuses the server endpoint").
				Value(&endpoint).
				Validate(validateOptionalURL("https", "http")),
			huh.NewInput().
				Title("Assessor deployment").
				Value(&deployment),
			huh.NewInput().
				Title("Assessor API key").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		).WithHideFunc(func() bool { return !enabled }),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Grading.Enabled = enabled
	cfg.Grading.URL = strings.TrimSpace(gradeURL)
	cfg.Grading.Endpoint = strings.TrimSpace(endpoint)
	cfg.Grading.Deployment = strings.TrimSpace(deployment)
	cfg.Grading.APIKey = strings.TrimSpace(apiKey)
	return nil
}

func editServer(cfg *config.Config) error {
	addr := cfg.Server.Addr
	endpoint := cfg.Server.Endpoint
	apiKey := cfg.Server.APIKey
	deployment := cfg.Server.Deployment
	voice := cfg.Server.Voice
	if voice == "" {
		voice = "verse"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Value(&addr),
			huh.NewInput().
				Title("Azure OpenAI endpoint").
				Description("Empty falls back to AZURE_OPENAI_ENDPOINT").
				Value(&endpoint).
				Validate(validateOptionalURL("https", "http")),
			huh.NewInput().
				Title("API key").
				Description("Empty falls back to AZURE_OPENAI_API_KEY").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewInput().
				Title("Realtime deployment").
				Value(&deployment),
			huh.NewSelect[string]().
				Title("Interviewer voice").
				Options(huh.NewOptions("verse", "alloy", "ash", "ballad", "coral", "echo", "sage", "shimmer")...).
				Value(&voice),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Server.Addr = strings.TrimSpace(addr)
	cfg.Server.Endpoint = strings.TrimSpace(endpoint)
	cfg.Server.APIKey = strings.TrimSpace(apiKey)
	cfg.Server.Deployment = strings.TrimSpace(deployment)
	cfg.Server.Voice = voice
	return nil
}

func editAudio(cfg *config.Config) error {
	mic := cfg.Audio.Microphone
	camera := cfg.Audio.Camera
	speaker := cfg.Audio.Speaker
	sampleRate := strconv.Itoa(cfg.Audio.SampleRate)
	volume := strconv.FormatFloat(cfg.Audio.Volume, 'f', -1, 64)
	echo := cfg.Audio.EchoCancellation
	monitor := cfg.Audio.MonitorLocal

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Microphone").
				Description("PipeWire target, empty for the default source").
				Value(&mic),
			huh.NewInput().
				Title("Camera").
				Description("Device for the self-view preview").
				Value(&camera),
			huh.NewInput().
				Title("Speaker").
				Description("PipeWire target, empty for the default sink").
				Value(&speaker),
			huh.NewSelect[string]().
				Title("Sample rate").
				Options(
					huh.NewOption("24000 Hz - Recommended", "24000"),
					huh.NewOption("16000 Hz", "16000"),
				).
				Value(&sampleRate),
			huh.NewInput().
				Title("Volume").
				Description("Interviewer volume between 0 and 1").
				Value(&volume).
				Validate(validateVolume),
			huh.NewConfirm().
				Title("Echo cancellation").
				Value(&echo),
			huh.NewConfirm().
				Title("Show when you are speaking").
				Value(&monitor),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Audio.Microphone = strings.TrimSpace(mic)
	cfg.Audio.Camera = strings.TrimSpace(camera)
	cfg.Audio.Speaker = strings.TrimSpace(speaker)
	cfg.Audio.SampleRate, _ = strconv.Atoi(sampleRate)
	cfg.Audio.Volume, _ = strconv.ParseFloat(strings.TrimSpace(volume), 64)
	cfg.Audio.EchoCancellation = echo
	cfg.Audio.MonitorLocal = monitor
	return nil
}

// editNotifications handles the notifications section edit
func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled
	notifType := cfg.Notifications.Type
	if notifType == "" {
		notifType = "desktop"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Description("Call connected, wrapping up, ended and failed").
				Value(&enabled),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Notification Type").
				Options(
					huh.NewOption("Desktop notifications (notify-send)", "desktop"),
					huh.NewOption("Log to console only", "log"),
					huh.NewOption("None (silent)", "none"),
				).
				Value(&notifType),
		).WithHideFunc(func() bool { return !enabled }),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	cfg.Notifications.Type = notifType
	return nil
}
