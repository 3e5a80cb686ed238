package service

import (
	"errors"
	"fmt"
	"testing"

	"qbank/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", notFound("Unit"))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.Equal(t, "handler: Unit not found", wrapped.Error())

	cause := errors.New("E11000 duplicate key")
	err := conflict("Subject already exists", cause)
	assert.True(t, IsConflict(err))
	assert.ErrorIs(t, err, cause)

	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestValidateStructMessages(t *testing.T) {
	tests := []struct {
		name string
		v    interface{}
		msg  string
	}{
		{"required", &models.FillBlank{Question: "q"}, "correctAnswer is required"},
		{"min options", &models.MCQ{Question: "q", Options: []string{"a"}}, "options must have at least 2 entries"},
		{"empty option", &models.MCQ{Question: "q", Options: []string{"a", ""}}, "options[1] is required"},
		{"block type", &models.Descriptive{Question: "q", Answer: []models.AnswerBlock{{Type: "video"}}}, "answer[0].type must be one of: text heading subheading list code diagram"},
		{"no answer", &models.Descriptive{Question: "q"}, "answer is required"},
		{"unit ordinal", &models.Unit{Title: "t"}, "unit must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStruct(tt.v)
			assert.True(t, IsValidation(err))
			assert.EqualError(t, err, tt.msg)
		})
	}
	assert.NoError(t, validateStruct(&models.FillBlank{Question: "q", CorrectAnswer: "a"}))
}
