package models

import (
	"fmt"
	"strings"
)

// QuestionKind selects one of the three question collections and the matching
// back-reference array on Unit.
type QuestionKind int

const (
	KindMCQ QuestionKind = iota
	KindFillBlank
	KindDescriptive
)

// Kinds lists every question kind in cascade order.
var Kinds = []QuestionKind{KindMCQ, KindFillBlank, KindDescriptive}

const (
	SubjectCollection = "subjects"
	UnitCollection    = "units"
)

// Collection is the name of the Mongo collection holding documents of this kind.
func (k QuestionKind) Collection() string {
	switch k {
	case KindMCQ:
		return "mcqs"
	case KindFillBlank:
		return "fillblanks"
	case KindDescriptive:
		return "descriptives"
	}
	panic(fmt.Sprintf("models: unknown question kind %d", int(k)))
}

// UnitField is the Unit array holding ids of this kind. It must stay in sync
// with the bson tags on Unit.
func (k QuestionKind) UnitField() string {
	switch k {
	case KindMCQ:
		return "mcqs"
	case KindFillBlank:
		return "fillBlanks"
	case KindDescriptive:
		return "descriptive"
	}
	panic(fmt.Sprintf("models: unknown question kind %d", int(k)))
}

func (k QuestionKind) Label() string {
	switch k {
	case KindMCQ:
		return "MCQ"
	case KindFillBlank:
		return "Fill in the blank question"
	case KindDescriptive:
		return "Descriptive question"
	}
	return "Question"
}

// Slug is the URL and CLI name of the kind.
func (k QuestionKind) Slug() string {
	switch k {
	case KindMCQ:
		return "mcqs"
	case KindFillBlank:
		return "fill-blanks"
	case KindDescriptive:
		return "descriptive"
	}
	return ""
}

func (k QuestionKind) String() string { return k.Slug() }

// ParseKind accepts the slug or a singular form ("mcq", "fill-blank", "fillblank").
func ParseKind(s string) (QuestionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mcq", "mcqs":
		return KindMCQ, nil
	case "fill-blank", "fill-blanks", "fillblank", "fillblanks":
		return KindFillBlank, nil
	case "descriptive", "descriptives":
		return KindDescriptive, nil
	}
	return 0, fmt.Errorf("unknown question kind %q", s)
}
