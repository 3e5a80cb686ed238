package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Answer block types for descriptive questions.
const (
	BlockText       = "text"
	BlockHeading    = "heading"
	BlockSubheading = "subheading"
	BlockList       = "list"
	BlockCode       = "code"
	BlockDiagram    = "diagram"
)

// AnswerBlock is one rendered piece of a descriptive answer. Ref only travels
// inside bulk-import payloads and is replaced by Content before storage.
type AnswerBlock struct {
	Type    string   `bson:"type" json:"type" validate:"required,oneof=text heading subheading list code diagram"`
	Content string   `bson:"content" json:"content"`
	Items   []string `bson:"items,omitempty" json:"items,omitempty"`
	Ref     string   `bson:"-" json:"ref,omitempty"`
}

type MCQ struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	SubjectID     primitive.ObjectID `bson:"subjectId" json:"subjectId"`
	UnitID        primitive.ObjectID `bson:"unitId" json:"unitId"`
	Question      string             `bson:"question" json:"question" validate:"required"`
	Options       []string           `bson:"options" json:"options" validate:"min=2,dive,required"`
	CorrectAnswer int                `bson:"correctAnswer" json:"correctAnswer" validate:"min=0"`
	Explanation   string             `bson:"explanation,omitempty" json:"explanation,omitempty"`
	Topic         string             `bson:"topic,omitempty" json:"topic,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type FillBlank struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	SubjectID     primitive.ObjectID `bson:"subjectId" json:"subjectId"`
	UnitID        primitive.ObjectID `bson:"unitId" json:"unitId"`
	Question      string             `bson:"question" json:"question" validate:"required"`
	CorrectAnswer string             `bson:"correctAnswer" json:"correctAnswer" validate:"required"`
	Explanation   string             `bson:"explanation,omitempty" json:"explanation,omitempty"`
	Topic         string             `bson:"topic,omitempty" json:"topic,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Descriptive struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	SubjectID primitive.ObjectID `bson:"subjectId" json:"subjectId"`
	UnitID    primitive.ObjectID `bson:"unitId" json:"unitId"`
	Question  string             `bson:"question" json:"question" validate:"required"`
	Answer    []AnswerBlock      `bson:"answer" json:"answer" validate:"required,min=1,dive"`
	Topic     string             `bson:"topic,omitempty" json:"topic,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DiagramURLs returns the hosted asset URLs referenced by the answer's diagram blocks.
func (d *Descriptive) DiagramURLs() []string {
	var urls []string
	for _, block := range d.Answer {
		if block.Type == BlockDiagram && block.Content != "" {
			urls = append(urls, block.Content)
		}
	}
	return urls
}

// UnitScoped is implemented by every question document owned by a Unit.
type UnitScoped interface {
	GetID() primitive.ObjectID
	SetID(id primitive.ObjectID)
	GetUnitID() primitive.ObjectID
	GetSubjectID() primitive.ObjectID
	SetOwner(subjectID, unitID primitive.ObjectID)
	Touch(now time.Time)
}

func (q *MCQ) GetID() primitive.ObjectID        { return q.ID }
func (q *MCQ) SetID(id primitive.ObjectID)      { q.ID = id }
func (q *MCQ) GetUnitID() primitive.ObjectID    { return q.UnitID }
func (q *MCQ) GetSubjectID() primitive.ObjectID { return q.SubjectID }
func (q *MCQ) SetOwner(subjectID, unitID primitive.ObjectID) {
	q.SubjectID, q.UnitID = subjectID, unitID
}
func (q *MCQ) Touch(now time.Time) {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now
}

func (q *FillBlank) GetID() primitive.ObjectID        { return q.ID }
func (q *FillBlank) SetID(id primitive.ObjectID)      { q.ID = id }
func (q *FillBlank) GetUnitID() primitive.ObjectID    { return q.UnitID }
func (q *FillBlank) GetSubjectID() primitive.ObjectID { return q.SubjectID }
func (q *FillBlank) SetOwner(subjectID, unitID primitive.ObjectID) {
	q.SubjectID, q.UnitID = subjectID, unitID
}
func (q *FillBlank) Touch(now time.Time) {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now
}

func (q *Descriptive) GetID() primitive.ObjectID        { return q.ID }
func (q *Descriptive) SetID(id primitive.ObjectID)      { q.ID = id }
func (q *Descriptive) GetUnitID() primitive.ObjectID    { return q.UnitID }
func (q *Descriptive) GetSubjectID() primitive.ObjectID { return q.SubjectID }
func (q *Descriptive) SetOwner(subjectID, unitID primitive.ObjectID) {
	q.SubjectID, q.UnitID = subjectID, unitID
}
func (q *Descriptive) Touch(now time.Time) {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now
}
