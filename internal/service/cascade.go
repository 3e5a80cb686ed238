package service

import (
	"context"
	"fmt"

	"qbank/database"
	"qbank/internal/models"
	"qbank/internal/utility"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// CascadeReport counts what a cascading delete removed.
type CascadeReport struct {
	Units        int64 `json:"units"`
	MCQs         int64 `json:"mcqs"`
	FillBlanks   int64 `json:"fillBlanks"`
	Descriptives int64 `json:"descriptives"`
	Assets       int   `json:"assets"`
}

func (r *CascadeReport) add(kind models.QuestionKind, n int64) {
	switch kind {
	case models.KindMCQ:
		r.MCQs += n
	case models.KindFillBlank:
		r.FillBlanks += n
	case models.KindDescriptive:
		r.Descriptives += n
	}
}

// cascader removes question documents below a Unit or Subject. It does not
// run inside a transaction: a crash midway can leave a partial delete, which a
// retry finishes.
type cascader struct {
	db     *database.DB
	assets utility.AssetStore
	log    *zap.Logger
}

func (c *cascader) coll(kind models.QuestionKind) *mongo.Collection {
	return database.OpenCollection(c.db, kind.Collection())
}

// clearQuestions deletes every question matching filter, kind by kind.
// Descriptive diagram assets are deleted before their documents.
func (c *cascader) clearQuestions(ctx context.Context, filter bson.M, report *CascadeReport) error {
	for _, kind := range models.Kinds {
		if kind == models.KindDescriptive {
			n, err := c.descriptiveAssets(ctx, filter)
			if err != nil {
				return err
			}
			report.Assets += n
		}
		res, err := c.coll(kind).DeleteMany(ctx, filter)
		if err != nil {
			return fmt.Errorf("delete %s: %w", kind.Slug(), err)
		}
		report.add(kind, res.DeletedCount)
	}
	return nil
}

func (c *cascader) descriptiveAssets(ctx context.Context, filter bson.M) (int, error) {
	cur, err := c.coll(models.KindDescriptive).Find(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("find descriptive: %w", err)
	}
	var docs []models.Descriptive
	if err := cur.All(ctx, &docs); err != nil {
		return 0, fmt.Errorf("decode descriptive: %w", err)
	}
	var urls []string
	for i := range docs {
		urls = append(urls, docs[i].DiagramURLs()...)
	}
	utility.CleanupAssets(ctx, c.assets, c.log, urls...)
	return len(urls), nil
}

// unitFilter matches the questions recorded under one Unit.
func unitFilter(unit *models.Unit) bson.M {
	return bson.M{"unitId": unit.ID}
}

// linkedFilter matches the linked ids that belong to unitID or to no Unit.
func linkedFilter(unitID primitive.ObjectID, refs []primitive.ObjectID) bson.M {
	return bson.M{
		"_id":    bson.M{"$in": refs},
		"unitId": bson.M{"$in": bson.A{unitID, primitive.NilObjectID, nil}},
	}
}

func (c *cascader) deleteUnitTree(ctx context.Context, unit *models.Unit, report *CascadeReport) error {
	if err := c.clearQuestions(ctx, unitFilter(unit), report); err != nil {
		return err
	}
	// Linked ids with no recorded owner are removed by id. A linked id owned
	// by another Unit is a stale link and stays with that Unit.
	for _, kind := range models.Kinds {
		refs := unit.Refs(kind)
		if len(refs) == 0 {
			continue
		}
		filter := linkedFilter(unit.ID, refs)
		if kind == models.KindDescriptive {
			n, err := c.descriptiveAssets(ctx, filter)
			if err != nil {
				return err
			}
			report.Assets += n
		}
		res, err := c.coll(kind).DeleteMany(ctx, filter)
		if err != nil {
			return fmt.Errorf("delete %s: %w", kind.Slug(), err)
		}
		report.add(kind, res.DeletedCount)
	}
	return nil
}
