package spam

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

var numberWords = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
	"eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen", "eighteen", "nineteen", "twenty",
}

// MathQuestion is a small addition a human answers easily.
type MathQuestion struct {
	A, B int
}

// NewMathQuestion picks two numbers between 1 and 10.
func NewMathQuestion() MathQuestion {
	return MathQuestion{A: rand.IntN(10) + 1, B: rand.IntN(10) + 1}
}

// Text is the question shown to the visitor.
func (q MathQuestion) Text() string {
	return fmt.Sprintf("What is %d plus %d?", q.A, q.B)
}

// Answer is the expected sum.
func (q MathQuestion) Answer() int {
	return q.A + q.B
}

// CorrectAnswer accepts digits or the English word for expected.
func CorrectAnswer(expected int, given string) bool {
	given = strings.ToLower(strings.TrimSpace(given))
	if given == "" {
		return false
	}
	if n, err := strconv.Atoi(given); err == nil {
		return n == expected
	}
	return expected >= 0 && expected < len(numberWords) && numberWords[expected] == given
}
