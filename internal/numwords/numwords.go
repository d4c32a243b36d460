// Package numwords turns small English and Spanish number words into integers.
//
// It is an approximation good enough for reminder expressions ("two", "veinte",
// "one hundred and five"), not a grammar.
package numwords

import (
	"strconv"
	"strings"
)

var english = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
	"thirty": 30, "forty": 40, "fifty": 50, "sixty": 60,
	"seventy": 70, "eighty": 80, "ninety": 90,
}

var spanish = map[string]int{
	"cero": 0, "uno": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
	"once": 11, "doce": 12, "trece": 13, "catorce": 14, "quince": 15,
	"dieciséis": 16, "diecisiete": 17, "dieciocho": 18, "diecinueve": 19,
	"veinte": 20, "veintiuno": 21, "veintidós": 22, "veintitrés": 23,
	"veinticuatro": 24, "veinticinco": 25, "veintiseis": 26, "veintiséis": 26,
	"veintisiete": 27, "veintiocho": 28, "veintinueve": 29,
	"treinta": 30, "cuarenta": 40, "cincuenta": 50, "sesenta": 60,
	"setenta": 70, "ochenta": 80, "noventa": 90,
	"cien": 100, "doscientos": 200, "trescientos": 300, "cuatrocientos": 400,
	"quinientos": 500, "seiscientos": 600, "setecientos": 700,
	"ochocientos": 800, "novecientos": 900,
}

type vocabulary struct {
	words map[string]int
	scale string // multiplies the running sub-total; empty when the language has none
}

var vocabularies = []vocabulary{
	{words: english, scale: "hundred"},
	{words: spanish},
}

// Parse returns the integer spelled by text, or 0 when nothing is recognised.
// Digit strings are accepted as-is. Each language is tried on its own and the
// first non-zero total wins.
func Parse(text string) int {
	if text == "" {
		return 0
	}
	if isDigits(text) {
		n, err := strconv.Atoi(text)
		if err != nil {
			return 0
		}
		return n
	}

	tokens := strings.Fields(strings.ToLower(text))
	for _, v := range vocabularies {
		if n := v.total(tokens); n != 0 {
			return n
		}
	}
	return 0
}

func (v vocabulary) total(tokens []string) int {
	result, current := 0, 0
	for _, tok := range tokens {
		if n, ok := v.words[tok]; ok {
			current += n
			continue
		}
		switch {
		case v.scale != "" && tok == v.scale:
			current *= 100
		case tok == "and" || tok == "y":
		default:
			result += current
			current = 0
		}
	}
	return result + current
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
