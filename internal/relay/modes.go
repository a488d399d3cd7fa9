// AngelaMos | 2026
// modes.go

package relay

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

type Mode string

const (
	ModeHealing     Mode = "vindecare"
	ModeEducation   Mode = "educatie"
	ModePerformance Mode = "performanta"
)

type Lang string

const (
	LangRO Lang = "ro"
	LangEN Lang = "en"
)

const (
	MinQueryLength = 2
	MaxQueryLength = 2000
)

var (
	ErrQueryTooShort = errors.New("query too short")
	ErrQueryTooLong  = errors.New("query too long")
)

var instructions = map[Lang]map[Mode]string{
	LangRO: {
		ModeHealing: `Modul VINDECARE activat.

Folosește DOAR informațiile din documentele Corpusului Triboi pentru:
- Codurile Universale (Observare, Acceptare, Iertare, Reconectare)
- Tehnici practice din cărți (respirație 4-6, grounding 5-4-3-2-1)
- Exemple și pași din metodologia Triboi

IMPORTANT:
- Citează din documente când e relevant
- Structurează în PAȘI numerotați (PASUL 1, PASUL 2, etc.)
- Menționează CODURILE TRIBOI folosite
- Oferă EXEMPLU FINAL concret

NU inventa informații care nu sunt în Corpusul Triboi!`,
		ModeEducation: `Modul EDUCAȚIE activat.

Folosește DOAR informațiile din documentele Corpusului Triboi pentru:
- 41+17 Coduri CET (Coduri Educaționale Triboi)
- Educația ca antidot al crizelor
- Metode practice pentru profesori/părinți/elevi

NU inventa coduri sau metode care nu sunt în documente!`,
		ModePerformance: `Modul PERFORMANȚĂ activat.

Folosește DOAR informațiile din documentele Corpusului Triboi pentru:
- Leadership conștient
- Simbioza Umanistă
- Tehnici pentru sportivi și echipe

NU inventa principii care nu sunt în Corpusul Triboi!`,
	},
	LangEN: {
		ModeHealing: `HEALING mode activated.

Use ONLY information from Triboi Corpus documents for:
- Universal Codes (Observation, Acceptance, Forgiveness, Reconnection)
- Practical techniques from books (4-6 breathing, 5-4-3-2-1 grounding)
- Examples and steps from Triboi methodology

DO NOT invent information not in Triboi Corpus!`,
		ModeEducation: `EDUCATION mode activated.

Use ONLY information from Triboi Corpus for CET Codes and educational methods.

DO NOT invent codes not in documents!`,
		ModePerformance: `PERFORMANCE mode activated.

Use ONLY information from Triboi Corpus for conscious leadership and symbiosis.

DO NOT invent principles not in Triboi Corpus!`,
	},
}

// ParseMode falls back to the healing mode for unknown values.
func ParseMode(s string) Mode {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := instructions[LangRO][m]; ok {
		return m
	}
	return ModeHealing
}

// ParseLang falls back to Romanian for unknown values.
func ParseLang(s string) Lang {
	l := Lang(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := instructions[l]; ok {
		return l
	}
	return LangRO
}

func Instruction(lang Lang, mode Mode) string {
	return instructions[ParseLang(string(lang))][ParseMode(string(mode))]
}

// NormalizeQuery trims the query and checks its length in characters.
func NormalizeQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	n := utf8.RuneCountInString(q)

	switch {
	case n < MinQueryLength:
		return "", fmt.Errorf("%w: minimum %d characters", ErrQueryTooShort, MinQueryLength)
	case n > MaxQueryLength:
		return "", fmt.Errorf("%w: maximum %d characters", ErrQueryTooLong, MaxQueryLength)
	}
	return q, nil
}

// BuildRequest assembles a completion request for one user query on top of
// prior turns.
func BuildRequest(
	lang Lang,
	mode Mode,
	history []Message,
	query string,
	temperature float64,
	maxTokens int,
) Request {
	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: RoleUser, Content: query})

	return Request{
		System:      Instruction(lang, mode),
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}
