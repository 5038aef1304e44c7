package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/markethub/backend/internal/domain/channel"
)

// cyrillicTranslit maps Cyrillic letters to their common Latin romanization
// for login synthesis.
var cyrillicTranslit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
}

// SynthesizeLogin derives the buyer login for a draft: phone digits first,
// then the transliterated buyer name, then the external order id as the last
// resort. The login is never empty for a draft that passed Validate.
func SynthesizeLogin(draft *channel.OrderDraft) string {
	if digits := phoneDigits(draft.Buyer.Phone); len(digits) >= 10 {
		return digits
	}
	if name := Transliterate(draft.Buyer.Name); name != "" {
		return name
	}
	return strings.ToLower(draft.ExternalOrderID)
}

// SynthesizeEmail derives the buyer email for a draft when the channel did
// not supply one.
func SynthesizeEmail(login string, ch channel.Code) string {
	return login + "@" + strings.ToLower(ch.String()) + "-email.com"
}

// phoneDigits strips everything but digits from a phone number.
func phoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Transliterate converts a free-form name to a lowercase ASCII login
// fragment: Cyrillic letters are romanized, diacritics stripped, whitespace
// collapsed to dashes, everything else dropped.
func Transliterate(name string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	flattened, _, err := transform.String(stripMarks, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		flattened = strings.ToLower(strings.TrimSpace(name))
	}

	var b strings.Builder
	lastDash := true
	for _, r := range flattened {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case cyrillicTranslit[r] != "" || r == 'ъ' || r == 'ь':
			b.WriteString(cyrillicTranslit[r])
			lastDash = false
		case unicode.IsSpace(r) && !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
