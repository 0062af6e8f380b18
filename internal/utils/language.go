package utils

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// Language codes
const (
	LangEnglish    = "en"
	LangSpanish    = "es"
	LangFrench     = "fr"
	LangGerman     = "de"
	LangItalian    = "it"
	LangPortuguese = "pt"
	LangDutch      = "nl"
	LangHebrew     = "he"
	LangArabic     = "ar"
	LangRussian    = "ru"
	LangChinese    = "zh"
	LangJapanese   = "ja"
	LangKorean     = "ko"
)

// minLatinWords is the shortest Latin-script text we try to tell apart from English
const minLatinWords = 5

// Language represents a detected language
type Language struct {
	Code       string
	Name       string
	Confidence float64
}

// ScriptRatio represents the ratio of characters in a specific script
type ScriptRatio struct {
	Code  string
	Name  string
	Ratio float64
}

var (
	hebrewPattern           = regexp.MustCompile(`[\x{0590}-\x{05FF}]`)
	arabicPattern           = regexp.MustCompile(`[\x{0600}-\x{06FF}]`)
	cyrillicPattern         = regexp.MustCompile(`[\x{0400}-\x{04FF}]`)
	chinesePattern          = regexp.MustCompile(`[\x{4E00}-\x{9FFF}]`)
	japanesePattern         = regexp.MustCompile(`[\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{4E00}-\x{9FFF}]`)
	koreanPattern           = regexp.MustCompile(`[\x{AC00}-\x{D7AF}]`)
	hiraganaKatakanaPattern = regexp.MustCompile(`[\x{3040}-\x{309F}\x{30A0}-\x{30FF}]`)
)

// latinProfile is a stop-word fingerprint for one Latin-script language
type latinProfile struct {
	Code  string
	Name  string
	Words map[string]struct{}
}

var latinProfiles = []latinProfile{
	{LangEnglish, "English", wordSet("the", "and", "is", "are", "you", "your", "have", "with", "this", "that", "not", "for", "was", "please", "thank", "would", "can", "what", "my", "it")},
	{LangSpanish, "Spanish", wordSet("el", "la", "los", "las", "que", "y", "es", "por", "para", "con", "una", "mi", "no", "pero", "gracias", "hola", "está", "como", "del", "su")},
	{LangFrench, "French", wordSet("le", "la", "les", "et", "est", "je", "vous", "pour", "avec", "une", "mon", "pas", "mais", "merci", "bonjour", "dans", "sur", "des", "du", "ne")},
	{LangGerman, "German", wordSet("der", "die", "das", "und", "ist", "ich", "sie", "nicht", "mit", "ein", "eine", "mein", "für", "aber", "danke", "bitte", "auf", "zu", "den", "wir")},
	{LangItalian, "Italian", wordSet("il", "lo", "gli", "che", "è", "non", "per", "con", "una", "mio", "ma", "grazie", "ciao", "sono", "della", "del", "questo", "di", "ho", "mi")},
	{LangPortuguese, "Portuguese", wordSet("o", "os", "que", "e", "é", "não", "para", "com", "uma", "meu", "mas", "obrigado", "olá", "está", "do", "da", "em", "um", "você", "minha")},
	{LangDutch, "Dutch", wordSet("de", "het", "een", "en", "is", "ik", "niet", "met", "voor", "mijn", "maar", "bedankt", "hallo", "dat", "van", "op", "wij", "zijn", "u", "jullie")},
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// DetectLanguage detects the language of the input text
// Returns the most likely language based on character patterns, then stop-word profiles for Latin text
func DetectLanguage(text string) Language {
	text = strings.TrimSpace(text)
	if text == "" {
		return Language{Code: LangEnglish, Name: "English", Confidence: 0.0}
	}

	// Calculate script ratios for different languages
	ratios := calculateScriptRatios(text)

	// Determine the language with the highest ratio
	lang := determineLanguageFromRatios(ratios, text)
	if lang.Code != LangEnglish {
		return lang
	}

	return detectLatinLanguage(text)
}

// DetectLanguageCode returns the canonical ISO 639-1 code for text, "en" when unsure
func DetectLanguageCode(text string) string {
	return CanonicalLanguageCode(DetectLanguage(text).Code)
}

// CanonicalLanguageCode normalises a BCP 47 tag to its base language ("pt-BR" -> "pt")
func CanonicalLanguageCode(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return LangEnglish
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return LangEnglish
	}
	return base.String()
}

// calculateScriptRatios calculates the ratio of characters for each script
func calculateScriptRatios(text string) []ScriptRatio {
	textRunes := float64(len([]rune(text)))
	ratio := func(re *regexp.Regexp) float64 {
		return float64(len(re.FindAllStringIndex(text, -1))) / textRunes
	}

	return []ScriptRatio{
		{Code: LangHebrew, Name: "Hebrew", Ratio: ratio(hebrewPattern)},
		{Code: LangArabic, Name: "Arabic", Ratio: ratio(arabicPattern)},
		{Code: LangRussian, Name: "Russian", Ratio: ratio(cyrillicPattern)},
		{Code: LangChinese, Name: "Chinese", Ratio: ratio(chinesePattern)},
		{Code: LangJapanese, Name: "Japanese", Ratio: ratio(japanesePattern)},
		{Code: LangKorean, Name: "Korean", Ratio: ratio(koreanPattern)},
	}
}

// determineLanguageFromRatios determines the language based on script ratios
func determineLanguageFromRatios(ratios []ScriptRatio, text string) Language {
	threshold := 0.1 // Minimum 10% of characters must be in the target script

	// Find the highest ratio above threshold
	var bestMatch ScriptRatio
	bestMatch.Code = LangEnglish
	bestMatch.Name = "English"
	bestMatch.Ratio = 0.0

	for _, ratio := range ratios {
		if ratio.Ratio > threshold && ratio.Ratio > bestMatch.Ratio {
			bestMatch = ratio
		}
	}

	// If no language meets the threshold, check for any non-English script
	if bestMatch.Code == LangEnglish {
		for _, ratio := range ratios {
			if ratio.Ratio > 0.01 && ratio.Ratio > bestMatch.Ratio { // Lower threshold for mixed text
				bestMatch = ratio
			}
		}
	}

	// Special handling for Chinese vs Japanese
	if bestMatch.Code == LangChinese || bestMatch.Code == LangJapanese {
		return handleChineseJapanese(bestMatch, text)
	}

	return Language{Code: bestMatch.Code, Name: bestMatch.Name, Confidence: bestMatch.Ratio}
}

// handleChineseJapanese handles the special case of distinguishing Chinese from Japanese
func handleChineseJapanese(bestMatch ScriptRatio, text string) Language {
	// Check for Hiragana/Katakana characters to distinguish Japanese from Chinese
	kanaRatio := float64(len(hiraganaKatakanaPattern.FindAllStringIndex(text, -1))) / float64(len([]rune(text)))

	// If there are significant Hiragana/Katakana characters, it's Japanese
	if kanaRatio > 0.05 { // More than 5% Hiragana/Katakana
		return Language{Code: LangJapanese, Name: "Japanese", Confidence: bestMatch.Ratio}
	}

	// Otherwise, it's Chinese
	return Language{Code: LangChinese, Name: "Chinese", Confidence: bestMatch.Ratio}
}

// detectLatinLanguage scores Latin-script text against each stop-word profile.
// Short text and ties fall back to English.
func detectLatinLanguage(text string) Language {
	english := Language{Code: LangEnglish, Name: "English", Confidence: 0.0}

	words := Words(text)
	if len(words) < minLatinWords {
		return english
	}

	best, runnerUp := 0, 0
	scores := make([]int, len(latinProfiles))
	for i, profile := range latinProfiles {
		for _, w := range words {
			if _, ok := profile.Words[w]; ok {
				scores[i]++
			}
		}
	}
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	for i, score := range scores {
		if i != best && score > runnerUp {
			runnerUp = score
		}
	}

	if scores[best] < 2 || scores[best] == runnerUp {
		return english
	}

	p := latinProfiles[best]
	return Language{Code: p.Code, Name: p.Name, Confidence: float64(scores[best]) / float64(len(words))}
}

// GetLanguageInstruction returns a language instruction for the AI based on a language code
func GetLanguageInstruction(code string) string {
	switch CanonicalLanguageCode(code) {
	case LangHebrew:
		return "Please respond in Hebrew (עברית)."
	case LangArabic:
		return "Please respond in Arabic (العربية)."
	case LangRussian:
		return "Please respond in Russian (Русский)."
	case LangChinese:
		return "Please respond in Chinese (中文)."
	case LangJapanese:
		return "Please respond in Japanese (日本語)."
	case LangKorean:
		return "Please respond in Korean (한국어)."
	case LangSpanish:
		return "Please respond in Spanish (Español)."
	case LangFrench:
		return "Please respond in French (Français)."
	case LangGerman:
		return "Please respond in German (Deutsch)."
	case LangItalian:
		return "Please respond in Italian (Italiano)."
	case LangPortuguese:
		return "Please respond in Portuguese (Português)."
	case LangDutch:
		return "Please respond in Dutch (Nederlands)."
	default:
		return "Please respond in English."
	}
}
