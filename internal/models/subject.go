package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Subject struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name        string               `bson:"name" json:"name" validate:"required,max=200"`
	Code        string               `bson:"code,omitempty" json:"code,omitempty"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Thumbnail   string               `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Units       []primitive.ObjectID `bson:"units" json:"units"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

type Unit struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	SubjectID   primitive.ObjectID   `bson:"subjectId" json:"subjectId"`
	Unit        int                  `bson:"unit" json:"unit" validate:"min=1"`
	Title       string               `bson:"title" json:"title" validate:"required"`
	Subtitle    string               `bson:"subtitle,omitempty" json:"subtitle,omitempty"`
	MCQs        []primitive.ObjectID `bson:"mcqs" json:"mcqs"`
	FillBlanks  []primitive.ObjectID `bson:"fillBlanks" json:"fillBlanks"`
	Descriptive []primitive.ObjectID `bson:"descriptive" json:"descriptive"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Refs returns the Unit's back-reference array for kind.
func (u *Unit) Refs(kind QuestionKind) []primitive.ObjectID {
	switch kind {
	case KindMCQ:
		return u.MCQs
	case KindFillBlank:
		return u.FillBlanks
	case KindDescriptive:
		return u.Descriptive
	}
	return nil
}
