package spam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMathQuestionRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		q := NewMathQuestion()
		assert.GreaterOrEqual(t, q.A, 1)
		assert.LessOrEqual(t, q.A, 10)
		assert.GreaterOrEqual(t, q.B, 1)
		assert.LessOrEqual(t, q.B, 10)
	}
}

func TestMathQuestionText(t *testing.T) {
	q := MathQuestion{A: 3, B: 4}

	assert.Equal(t, "What is 3 plus 4?", q.Text())
	assert.Equal(t, 7, q.Answer())
}

func TestCorrectAnswer(t *testing.T) {
	tests := []struct {
		given string
		want  bool
	}{
		{"7", true},
		{" 7 ", true},
		{"seven", true},
		{"Seven", true},
		{"8", false},
		{"eight", false},
		{"", false},
		{"lots", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CorrectAnswer(7, tt.given), tt.given)
	}
}
