package language

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a caption language the transcriber accepts.
type Language struct {
	Code       string // ISO 639-1 code (e.g., "en", "es", "zh")
	Name       string // English name
	NativeName string // name in the language itself
}

// Auto lets the transcriber detect the spoken language.
var Auto = Language{Code: "", Name: "Auto-detect"}

// codes accepted by the gpt-4o transcription models
var codes = []string{
	"af", "ar", "hy", "az", "be", "bs", "bg", "ca", "zh", "hr", "cs", "da",
	"nl", "en", "et", "fi", "fr", "gl", "de", "el", "he", "hi", "hu", "is",
	"id", "it", "ja", "kn", "kk", "ko", "lv", "lt", "mk", "ms", "mr", "mi",
	"ne", "no", "fa", "pl", "pt", "ro", "ru", "sr", "sk", "sl", "es", "sw",
	"sv", "tl", "ta", "th", "tr", "uk", "ur", "vi", "cy",
}

var index = func() map[string]Language {
	m := make(map[string]Language, len(codes)+1)
	m[""] = Auto
	for _, c := range codes {
		m[c] = describe(c)
	}
	return m
}()

func describe(code string) Language {
	lang := Language{Code: code, Name: code, NativeName: code}
	tag, err := language.Parse(code)
	if err != nil {
		return lang
	}
	if name := display.English.Tags().Name(tag); name != "" {
		lang.Name = name
	}
	if native := display.Self.Name(tag); native != "" {
		lang.NativeName = native
	}
	return lang
}

// FromCode returns the Language for code, or Auto when it is not supported.
func FromCode(code string) Language {
	if lang, ok := index[Normalize(code)]; ok {
		return lang
	}
	return Auto
}

// Normalize lowercases code and reduces regional tags like "en-US" or
// "pt_BR" to their base language.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// IsValidCode reports whether code is supported; empty means auto-detect.
func IsValidCode(code string) bool {
	_, ok := index[Normalize(code)]
	return ok && (code == "" || Normalize(code) != "")
}

// List returns every supported language sorted by English name.
func List() []Language {
	out := make([]Language, 0, len(codes))
	for _, c := range codes {
		out = append(out, index[c])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Label renders a code for menus, e.g. "Spanish (es)".
func Label(code string) string {
	if code == "" {
		return Auto.Name
	}
	lang, ok := index[Normalize(code)]
	if !ok {
		return fmt.Sprintf("language '%s'", code)
	}
	return fmt.Sprintf("%s (%s)", lang.Name, lang.Code)
}
