package service

import (
	"testing"

	"qbank/internal/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLinkedFilterKeepsOtherUnitsQuestions(t *testing.T) {
	unitID := primitive.NewObjectID()
	refs := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}

	filter := linkedFilter(unitID, refs)

	assert.Equal(t, bson.M{"$in": refs}, filter["_id"])
	owners, ok := filter["unitId"].(bson.M)
	if assert.True(t, ok) {
		assert.Equal(t, bson.A{unitID, primitive.NilObjectID, nil}, owners["$in"])
	}
}

func TestCascadeReportAdd(t *testing.T) {
	var r CascadeReport
	r.add(models.KindMCQ, 2)
	r.add(models.KindFillBlank, 3)
	r.add(models.KindDescriptive, 4)
	r.add(models.KindMCQ, 1)

	assert.Equal(t, CascadeReport{MCQs: 3, FillBlanks: 3, Descriptives: 4}, r)
}
