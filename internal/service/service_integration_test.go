package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"qbank/database"
	"qbank/internal/models"
	"qbank/internal/utility"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// openIntegrationDB connects to the replica set in QBANK_MONGO_URI and gives
// the test its own database, dropped afterwards.
func openIntegrationDB(t *testing.T) *database.DB {
	t.Helper()
	uri := os.Getenv("QBANK_MONGO_URI")
	if uri == "" {
		t.Skip("set QBANK_MONGO_URI to a replica set to run integration tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, uri, fmt.Sprintf("qbank_it_%d", time.Now().UnixNano()), 10*time.Second)
	require.NoError(t, err)
	require.NoError(t, db.EnsureIndexes(ctx))
	t.Cleanup(func() {
		_ = db.Database.Drop(context.Background())
		_ = db.Close(context.Background())
	})
	return db
}

func newIntegrationBank(t *testing.T) (*QuestionBank, *database.DB, *fakeAssetStore) {
	db := openIntegrationDB(t)
	store := &fakeAssetStore{}
	return New(db, store, zap.NewNop(), Options{Folder: "qb"}), db, store
}

func seedUnit(ctx context.Context, t *testing.T, qb *QuestionBank, name string) (*models.Subject, *models.Unit) {
	t.Helper()
	subject, err := qb.Subjects.Create(ctx, &models.Subject{Name: name}, nil)
	require.NoError(t, err)
	unit, err := qb.Units.Create(ctx, &models.Unit{SubjectID: subject.ID, Unit: 1, Title: "Unit 1"})
	require.NoError(t, err)
	return subject, unit
}

func count(ctx context.Context, t *testing.T, db *database.DB, collection string, filter bson.M) int64 {
	t.Helper()
	n, err := database.OpenCollection(db, collection).CountDocuments(ctx, filter)
	require.NoError(t, err)
	return n
}

func TestCreateDeleteKeepsUnitLinks_DBIntegration(t *testing.T) {
	qb, _, _ := newIntegrationBank(t)
	ctx := context.Background()
	subject, unit := seedUnit(ctx, t, qb, "Geography")

	mcq, err := qb.MCQs.Create(ctx, &models.MCQ{
		SubjectID: subject.ID,
		UnitID:    unit.ID,
		Question:  "Capital of France?",
		Options:   []string{"Paris", "Rome"},
	})
	require.NoError(t, err)

	got, err := qb.Units.Get(ctx, unit.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{mcq.ID}, got.MCQs)

	// No unitId given: the document's own unit is unlinked.
	_, err = qb.MCQs.Delete(ctx, mcq.ID.Hex(), "")
	require.NoError(t, err)

	got, err = qb.Units.Get(ctx, unit.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, got.MCQs)

	_, err = qb.MCQs.Delete(ctx, mcq.ID.Hex(), "")
	assert.True(t, IsNotFound(err))
}

func TestCreateIntoMissingUnitWritesNothing_DBIntegration(t *testing.T) {
	qb, db, _ := newIntegrationBank(t)
	ctx := context.Background()
	subject, _ := seedUnit(ctx, t, qb, "History")

	_, err := qb.FillBlanks.Create(ctx, &models.FillBlank{
		SubjectID:     subject.ID,
		UnitID:        primitive.NewObjectID(),
		Question:      "1066 was the battle of __",
		CorrectAnswer: "Hastings",
	})
	require.Error(t, err)
	assert.Equal(t, "Unit not found", err.Error())
	assert.Zero(t, count(ctx, t, db, models.KindFillBlank.Collection(), bson.M{}))
}

func TestBulkCreateAndDelete_DBIntegration(t *testing.T) {
	qb, db, _ := newIntegrationBank(t)
	ctx := context.Background()
	subject, unit := seedUnit(ctx, t, qb, "Maths")

	items := []json.RawMessage{
		json.RawMessage(`{"question":"2+2=__","correctAnswer":"4"}`),
		json.RawMessage(`{"question":"3+3=__","correctAnswer":"6"}`),
		json.RawMessage(`{"question":"4+4=__","correctAnswer":"8"}`),
	}
	created, err := qb.FillBlanks.BulkCreate(ctx, BulkCreateInput{
		UnitID:    unit.ID.Hex(),
		SubjectID: subject.ID.Hex(),
		Items:     items,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	// A unit that does not exist aborts the whole batch.
	_, err = qb.FillBlanks.BulkCreate(ctx, BulkCreateInput{
		UnitID:    primitive.NewObjectID().Hex(),
		SubjectID: subject.ID.Hex(),
		Items:     items,
	})
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int64(3), count(ctx, t, db, models.KindFillBlank.Collection(), bson.M{}))

	listed, err := qb.FillBlanks.ListByUnit(ctx, unit.ID.Hex())
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "2+2=__", listed[0].Question)

	slim, err := qb.FillBlanks.ListByUnit(ctx, unit.ID.Hex(), "question")
	require.NoError(t, err)
	require.Len(t, slim, 3)
	assert.Equal(t, "2+2=__", slim[0].Question)
	assert.Empty(t, slim[0].CorrectAnswer)
	assert.False(t, slim[0].ID.IsZero())

	got, err := qb.Units.Get(ctx, unit.ID.Hex())
	require.NoError(t, err)
	require.Len(t, got.FillBlanks, 3)

	ids := []string{"junk"}
	for _, id := range got.FillBlanks {
		ids = append(ids, id.Hex())
	}
	res, err := qb.FillBlanks.BulkDelete(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, BulkDeleteResult{Requested: 4, Deleted: 3}, res)

	res, err = qb.FillBlanks.BulkDelete(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, BulkDeleteResult{Requested: 4, Deleted: 0}, res)

	got, err = qb.Units.Get(ctx, unit.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, got.FillBlanks)
}

func TestBulkDeletePrunesEveryUnit_DBIntegration(t *testing.T) {
	qb, db, _ := newIntegrationBank(t)
	ctx := context.Background()
	subject, first := seedUnit(ctx, t, qb, "Economics")
	second, err := qb.Units.Create(ctx, &models.Unit{SubjectID: subject.ID, Unit: 2, Title: "Unit 2"})
	require.NoError(t, err)

	items := []json.RawMessage{
		json.RawMessage(`{"question":"Supply and __","correctAnswer":"demand"}`),
		json.RawMessage(`{"question":"GDP stands for gross domestic __","correctAnswer":"product"}`),
	}
	for _, unit := range []*models.Unit{first, second} {
		created, err := qb.FillBlanks.BulkCreate(ctx, BulkCreateInput{
			UnitID:    unit.ID.Hex(),
			SubjectID: subject.ID.Hex(),
			Items:     items,
		})
		require.NoError(t, err)
		require.Equal(t, 2, created)
	}

	firstUnit, err := qb.Units.Get(ctx, first.ID.Hex())
	require.NoError(t, err)
	secondUnit, err := qb.Units.Get(ctx, second.ID.Hex())
	require.NoError(t, err)
	require.Len(t, firstUnit.FillBlanks, 2)
	require.Len(t, secondUnit.FillBlanks, 2)

	// One id from each unit, a malformed id and an id that never existed.
	ids := []string{
		firstUnit.FillBlanks[0].Hex(),
		secondUnit.FillBlanks[1].Hex(),
		"not-an-id",
		primitive.NewObjectID().Hex(),
	}
	res, err := qb.FillBlanks.BulkDelete(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, BulkDeleteResult{Requested: 4, Deleted: 2}, res)

	assertRefs := func() {
		got, err := qb.Units.Get(ctx, first.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{firstUnit.FillBlanks[1]}, got.FillBlanks)

		got, err = qb.Units.Get(ctx, second.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{secondUnit.FillBlanks[0]}, got.FillBlanks)
	}
	assertRefs()
	assert.Equal(t, int64(2), count(ctx, t, db, models.KindFillBlank.Collection(), bson.M{}))

	res, err = qb.FillBlanks.BulkDelete(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, BulkDeleteResult{Requested: 4, Deleted: 0}, res)
	assertRefs()
}

func TestDeleteUnitSparesQuestionsOwnedElsewhere_DBIntegration(t *testing.T) {
	qb, db, _ := newIntegrationBank(t)
	ctx := context.Background()
	subject, first := seedUnit(ctx, t, qb, "Philosophy")
	second, err := qb.Units.Create(ctx, &models.Unit{SubjectID: subject.ID, Unit: 2, Title: "Unit 2"})
	require.NoError(t, err)

	foreign, err := qb.MCQs.Create(ctx, &models.MCQ{SubjectID: subject.ID, UnitID: second.ID, Question: "q", Options: []string{"a", "b"}})
	require.NoError(t, err)

	// A stale link: the first unit also lists the second unit's question.
	_, err = database.OpenCollection(db, models.UnitCollection).UpdateOne(ctx,
		bson.M{"_id": first.ID}, bson.M{"$push": bson.M{"mcqs": foreign.ID}})
	require.NoError(t, err)

	report, err := qb.Units.Delete(ctx, first.ID.Hex())
	require.NoError(t, err)
	assert.Zero(t, report.MCQs)

	got, err := qb.MCQs.Get(ctx, foreign.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.UnitID)

	unit, err := qb.Units.Get(ctx, second.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{foreign.ID}, unit.MCQs)
}

func TestDeleteSubjectCascades_DBIntegration(t *testing.T) {
	qb, db, store := newIntegrationBank(t)
	ctx := context.Background()

	subject, err := qb.Subjects.Create(ctx, &models.Subject{Name: "Physics"}, &utility.Asset{
		Filename:    "thumb.png",
		ContentType: "image/png",
		Size:        3,
		Open:        pngAsset("thumb.png").Open,
	})
	require.NoError(t, err)
	require.Equal(t, "https://cdn.test/upload/qb/thumb.png", subject.Thumbnail)

	var diagrams []string
	for u := 1; u <= 2; u++ {
		unit, err := qb.Units.Create(ctx, &models.Unit{SubjectID: subject.ID, Unit: u, Title: fmt.Sprintf("Unit %d", u)})
		require.NoError(t, err)

		_, err = qb.MCQs.Create(ctx, &models.MCQ{SubjectID: subject.ID, UnitID: unit.ID, Question: "q", Options: []string{"a", "b"}})
		require.NoError(t, err)
		_, err = qb.FillBlanks.Create(ctx, &models.FillBlank{SubjectID: subject.ID, UnitID: unit.ID, Question: "q", CorrectAnswer: "a"})
		require.NoError(t, err)

		diagram := fmt.Sprintf("https://cdn.test/upload/qb/diagram-%d.png", u)
		diagrams = append(diagrams, diagram)
		_, err = qb.Descriptive.Create(ctx, &models.Descriptive{
			SubjectID: subject.ID,
			UnitID:    unit.ID,
			Question:  "Sketch it",
			Answer: []models.AnswerBlock{
				{Type: models.BlockText, Content: "As shown:"},
				{Type: models.BlockDiagram, Content: diagram},
			},
		})
		require.NoError(t, err)
	}

	report, err := qb.Subjects.Delete(ctx, subject.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, &CascadeReport{Units: 2, MCQs: 2, FillBlanks: 2, Descriptives: 2, Assets: 3}, report)

	for _, kind := range models.Kinds {
		assert.Zero(t, count(ctx, t, db, kind.Collection(), bson.M{"subjectId": subject.ID}), kind.Slug())
	}
	assert.Zero(t, count(ctx, t, db, models.UnitCollection, bson.M{"subjectId": subject.ID}))
	assert.Zero(t, count(ctx, t, db, models.SubjectCollection, bson.M{"_id": subject.ID}))

	assert.ElementsMatch(t, append(diagrams, subject.Thumbnail), store.deleted)
}

func TestDeleteUnitUnlinksFromSubject_DBIntegration(t *testing.T) {
	qb, db, _ := newIntegrationBank(t)
	ctx := context.Background()
	subject, unit := seedUnit(ctx, t, qb, "Chemistry")

	_, err := qb.MCQs.Create(ctx, &models.MCQ{SubjectID: subject.ID, UnitID: unit.ID, Question: "q", Options: []string{"a", "b"}})
	require.NoError(t, err)

	report, err := qb.Units.Delete(ctx, unit.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Units)
	assert.Equal(t, int64(1), report.MCQs)

	got, err := qb.Subjects.Get(ctx, subject.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, got.Units)
	assert.Zero(t, count(ctx, t, db, models.KindMCQ.Collection(), bson.M{}))
}

func TestImportDescriptiveEndToEnd_DBIntegration(t *testing.T) {
	qb, _, store := newIntegrationBank(t)
	ctx := context.Background()
	subject, unit := seedUnit(ctx, t, qb, "Biology")

	file := []byte(`[
		{"question":"Q1","answer":[{"type":"text","content":"one"}]},
		{"question":"Q2","answer":[{"type":"heading","content":"Cell"},{"type":"diagram","ref":"diag-2"}]},
		{"question":"Q3","answer":[{"type":"code","content":"x := 3"}]}
	]`)
	res, err := qb.Importer.Import(ctx, ImportRequest{
		Kind:      models.KindDescriptive,
		UnitID:    unit.ID.Hex(),
		SubjectID: subject.ID.Hex(),
		Files:     [][]byte{file},
		Images:    []utility.Asset{pngAsset("Diag-2.png")},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.CreatedCount)
	assert.Equal(t, []string{"Diag-2.png"}, store.uploads)

	got, err := qb.Units.Get(ctx, unit.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, got.Descriptive, 3)

	docs, err := qb.Descriptive.ListByUnit(ctx, unit.ID.Hex())
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []models.AnswerBlock{{Type: "text", Content: "one"}}, docs[0].Answer)
	assert.Equal(t, "https://cdn.test/upload/qb/Diag-2.png", docs[1].Answer[1].Content)
	assert.Empty(t, docs[1].Answer[1].Ref)
	assert.Equal(t, "x := 3", docs[2].Answer[0].Content)
}

func TestUpdateDescriptiveCleansDroppedDiagram_DBIntegration(t *testing.T) {
	qb, _, store := newIntegrationBank(t)
	ctx := context.Background()
	subject, unit := seedUnit(ctx, t, qb, "Art")

	q, err := qb.Descriptive.Create(ctx, &models.Descriptive{
		SubjectID: subject.ID,
		UnitID:    unit.ID,
		Question:  "Draw",
		Answer:    []models.AnswerBlock{{Type: models.BlockDiagram, Content: "https://cdn.test/upload/qb/old.png"}},
	})
	require.NoError(t, err)

	updated, err := qb.Descriptive.Update(ctx, q.ID.Hex(), &models.Descriptive{
		Question: "Draw again",
		Answer:   []models.AnswerBlock{{Type: models.BlockDiagram, Content: "https://cdn.test/upload/qb/new.png"}},
	})
	require.NoError(t, err)
	assert.Equal(t, unit.ID, updated.UnitID)
	assert.Equal(t, "Draw again", updated.Question)
	assert.Equal(t, q.CreatedAt, updated.CreatedAt)
	assert.Equal(t, []string{"https://cdn.test/upload/qb/old.png"}, store.deleted)
}
