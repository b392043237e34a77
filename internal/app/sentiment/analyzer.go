// Package sentiment classifies short texts as positive, negative or neutral
// using a small weighted lexicon.
package sentiment

import (
	"strings"
	"unicode"
)

// Label is a sentiment classification result.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// lexicon maps sentiment-bearing words to their weight. Deliberately small;
// the feature grades free-text notes, not essays.
var lexicon = map[string]int{
	"love": 2, "loved": 2, "amazing": 2, "awesome": 2, "perfect": 2,
	"beautiful": 2, "fantastic": 2, "best": 2, "wonderful": 2,
	"great": 1, "good": 1, "nice": 1, "happy": 1, "fun": 1, "like": 1,
	"enjoy": 1, "enjoyed": 1, "cool": 1, "favorite": 1, "chill": 1,
	"relaxing": 1, "catchy": 1, "upbeat": 1,

	"hate": -2, "hated": -2, "awful": -2, "terrible": -2, "worst": -2,
	"horrible": -2, "unbearable": -2,
	"bad": -1, "sad": -1, "boring": -1, "annoying": -1, "dislike": -1,
	"noisy": -1, "dull": -1, "weak": -1, "mediocre": -1, "depressing": -1,
}

// negators flip the weight of the word that follows them.
var negators = map[string]bool{
	"not": true, "no": true, "never": true, "dont": true, "don't": true,
	"isnt": true, "isn't": true, "wasnt": true, "wasn't": true,
}

// Analyze scores text against the lexicon and maps the score to a label:
// below zero is negative, zero is neutral, above zero is positive. Total on
// any input, including the empty string.
func Analyze(text string) Label {
	score := Score(text)
	switch {
	case score < 0:
		return Negative
	case score > 0:
		return Positive
	default:
		return Neutral
	}
}

// Score returns the raw lexicon score of text.
func Score(text string) int {
	words := tokenize(text)

	score := 0
	negate := false
	for _, w := range words {
		if negators[w] {
			negate = true
			continue
		}
		if weight, ok := lexicon[w]; ok {
			if negate {
				weight = -weight
			}
			score += weight
		}
		negate = false
	}
	return score
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}
