package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseKind(t *testing.T) {
	for in, want := range map[string]QuestionKind{
		"mcq":          KindMCQ,
		"MCQs":         KindMCQ,
		"fill-blank":   KindFillBlank,
		" fillblanks ": KindFillBlank,
		"descriptive":  KindDescriptive,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseKind("essay")
	assert.Error(t, err)
}

// UnitField must name the bson field the Unit document actually stores.
func TestUnitFieldMatchesUnitDocument(t *testing.T) {
	id := primitive.NewObjectID()
	unit := Unit{
		MCQs:        []primitive.ObjectID{id},
		FillBlanks:  []primitive.ObjectID{id},
		Descriptive: []primitive.ObjectID{id},
	}
	raw, err := bson.Marshal(unit)
	require.NoError(t, err)
	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))

	for _, kind := range Kinds {
		assert.Contains(t, doc, kind.UnitField(), kind.Slug())
		assert.Equal(t, []primitive.ObjectID{id}, unit.Refs(kind))
	}
}

func TestKindNames(t *testing.T) {
	assert.Equal(t, "fillblanks", KindFillBlank.Collection())
	assert.Equal(t, "descriptives", KindDescriptive.Collection())
	assert.Equal(t, "fill-blanks", KindFillBlank.Slug())
	assert.Equal(t, "MCQ", KindMCQ.Label())
	assert.Equal(t, "descriptive", KindDescriptive.String())
}
