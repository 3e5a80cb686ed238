package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"qbank/database"
	"qbank/internal/models"
	"qbank/internal/monitoring"
	"qbank/internal/utility"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// questionDoc ties a question struct T to its pointer, which carries the
// Unit ownership accessors.
type questionDoc[T any] interface {
	*T
	models.UnitScoped
}

// PrepareFunc turns one raw bulk item into a document, resolving symbolic
// image refs against refImages. It must not perform I/O.
type PrepareFunc[T any] func(raw json.RawMessage, refImages map[string]string) (*T, error)

// OperatorConfig describes one question kind.
type OperatorConfig[T any] struct {
	Kind    models.QuestionKind
	Prepare PrepareFunc[T]
	// Check runs kind specific rules after struct validation.
	Check func(*T) error
	// OwnedAssets lists hosted assets that die with the document.
	OwnedAssets func(*T) []string
}

// UnitOperators keeps one question collection and the owning Unit's
// back-reference array consistent. Every mutation of a question document and
// the matching Unit array update share one transaction.
type UnitOperators[T any, PT questionDoc[T]] struct {
	cfg    OperatorConfig[T]
	db     *database.DB
	coll   *mongo.Collection
	units  *mongo.Collection
	assets utility.AssetStore
	log    *zap.Logger
	now    func() time.Time
}

func NewUnitOperators[T any, PT questionDoc[T]](db *database.DB, assets utility.AssetStore, log *zap.Logger, cfg OperatorConfig[T]) *UnitOperators[T, PT] {
	o := &UnitOperators[T, PT]{
		cfg:    cfg,
		db:     db,
		assets: assets,
		log:    log.With(zap.String("kind", cfg.Kind.Slug())),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
	if db != nil {
		o.coll = database.OpenCollection(db, cfg.Kind.Collection())
		o.units = database.OpenCollection(db, models.UnitCollection)
	}
	return o
}

func (o *UnitOperators[T, PT]) Kind() models.QuestionKind { return o.cfg.Kind }

func (o *UnitOperators[T, PT]) label() string { return o.cfg.Kind.Label() }

func (o *UnitOperators[T, PT]) validateDoc(doc PT) error {
	if err := validateStruct(doc); err != nil {
		return err
	}
	if o.cfg.Check != nil {
		if err := o.cfg.Check((*T)(doc)); err != nil {
			return err
		}
	}
	return nil
}

func (o *UnitOperators[T, PT]) ownedAssets(doc PT) []string {
	if o.cfg.OwnedAssets == nil || doc == nil {
		return nil
	}
	return o.cfg.OwnedAssets((*T)(doc))
}

// Create inserts doc and pushes its id onto the owning Unit in one transaction.
// A missing Unit (or one that belongs to another subject) aborts the insert.
func (o *UnitOperators[T, PT]) Create(ctx context.Context, doc PT) (PT, error) {
	if doc == nil {
		return nil, invalidf("%s body is required", o.label())
	}
	unitID, subjectID := doc.GetUnitID(), doc.GetSubjectID()
	if unitID.IsZero() || subjectID.IsZero() {
		return nil, invalidf("unitId and subjectId are required")
	}
	if err := o.validateDoc(doc); err != nil {
		return nil, err
	}

	now := o.now()
	doc.SetID(primitive.NewObjectID())
	doc.Touch(now)

	err := o.db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := o.coll.InsertOne(sc, doc); err != nil {
			return fmt.Errorf("insert %s: %w", o.cfg.Kind.Slug(), err)
		}
		return o.pushRefs(sc, unitID, subjectID, []primitive.ObjectID{doc.GetID()}, now)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (o *UnitOperators[T, PT]) pushRefs(sc mongo.SessionContext, unitID, subjectID primitive.ObjectID, ids []primitive.ObjectID, now time.Time) error {
	res, err := o.units.UpdateOne(sc,
		bson.M{"_id": unitID, "subjectId": subjectID},
		bson.M{
			"$push": bson.M{o.cfg.Kind.UnitField(): bson.M{"$each": ids}},
			"$set":  bson.M{"updatedAt": now},
		},
	)
	if err != nil {
		return fmt.Errorf("link %s to unit: %w", o.cfg.Kind.Slug(), err)
	}
	if res.MatchedCount == 0 {
		return notFound("Unit")
	}
	return nil
}

// Get returns one question by id.
func (o *UnitOperators[T, PT]) Get(ctx context.Context, id string) (PT, error) {
	oid, ok := utility.ParseID(id)
	if !ok {
		return nil, invalidf("Invalid %s id", o.label())
	}
	var doc T
	if err := o.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(o.label())
		}
		return nil, fmt.Errorf("find %s: %w", o.cfg.Kind.Slug(), err)
	}
	return PT(&doc), nil
}

// Update replaces the authored fields of a question. Ownership and creation
// time never change; assets dropped by the edit are cleaned after the write.
func (o *UnitOperators[T, PT]) Update(ctx context.Context, id string, doc PT) (PT, error) {
	oid, ok := utility.ParseID(id)
	if !ok {
		return nil, invalidf("Invalid %s id", o.label())
	}
	if doc == nil {
		return nil, invalidf("%s body is required", o.label())
	}
	if err := o.validateDoc(doc); err != nil {
		return nil, err
	}

	fields, err := authoredFields(doc)
	if err != nil {
		return nil, err
	}
	fields["updatedAt"] = o.now()

	var before T
	err = o.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(o.label())
		}
		return nil, fmt.Errorf("update %s: %w", o.cfg.Kind.Slug(), err)
	}

	if dropped := difference(o.ownedAssets(PT(&before)), o.ownedAssets(doc)); len(dropped) > 0 {
		utility.CleanupAssets(ctx, o.assets, o.log, dropped...)
	}
	return o.Get(ctx, id)
}

// authoredFields marshals doc and strips the keys an update may not touch.
func authoredFields(doc interface{}) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	fields := bson.M{}
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	for _, key := range []string{"_id", "unitId", "subjectId", "createdAt"} {
		delete(fields, key)
	}
	return fields, nil
}

// Delete removes a question and pulls it from the Unit recorded on the
// document itself. unitID, when given, only narrows the lookup. Owned assets
// are cleaned after the transaction commits.
func (o *UnitOperators[T, PT]) Delete(ctx context.Context, id, unitID string) (PT, error) {
	oid, ok := utility.ParseID(id)
	if !ok {
		return nil, invalidf("Invalid %s id", o.label())
	}
	filter := bson.M{"_id": oid}
	if unitID != "" {
		uid, ok := utility.ParseID(unitID)
		if !ok {
			return nil, invalidf("Invalid unit id")
		}
		filter["unitId"] = uid
	}

	var deleted T
	err := o.db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		if err := o.coll.FindOneAndDelete(sc, filter).Decode(&deleted); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return notFound(o.label())
			}
			return fmt.Errorf("delete %s: %w", o.cfg.Kind.Slug(), err)
		}
		owner := PT(&deleted).GetUnitID()
		_, err := o.units.UpdateOne(sc,
			bson.M{"_id": owner},
			bson.M{"$pull": bson.M{o.cfg.Kind.UnitField(): oid}, "$set": bson.M{"updatedAt": o.now()}},
		)
		if err != nil {
			return fmt.Errorf("unlink %s from unit: %w", o.cfg.Kind.Slug(), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utility.CleanupAssets(ctx, o.assets, o.log, o.ownedAssets(PT(&deleted))...)
	return PT(&deleted), nil
}

// ListByUnit returns the Unit's questions oldest first. When fields are given
// only those (and _id) are loaded.
func (o *UnitOperators[T, PT]) ListByUnit(ctx context.Context, unitID string, fields ...string) ([]T, error) {
	uid, ok := utility.ParseID(unitID)
	if !ok {
		return nil, invalidf("Invalid unit id")
	}
	proj, err := projection(fields)
	if err != nil {
		return nil, err
	}
	n, err := o.units.CountDocuments(ctx, bson.M{"_id": uid}, options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("find unit: %w", err)
	}
	if n == 0 {
		return nil, notFound("Unit")
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if proj != nil {
		opts.SetProjection(proj)
	}
	cur, err := o.coll.Find(ctx, bson.M{"unitId": uid}, opts)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", o.cfg.Kind.Slug(), err)
	}
	docs := []T{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", o.cfg.Kind.Slug(), err)
	}
	return docs, nil
}

// projection builds an inclusion projection. Blank names are skipped.
func projection(fields []string) (bson.D, error) {
	var proj bson.D
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if strings.HasPrefix(f, "$") || strings.Contains(f, "..") {
			return nil, invalidf("invalid field %q", f)
		}
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	return proj, nil
}

// BulkCreateInput carries a bulk create request for one Unit.
type BulkCreateInput struct {
	UnitID    string
	SubjectID string
	Items     []json.RawMessage
	RefImages map[string]string
}

// BulkCreate validates every item up front, then inserts all of them and links
// them to the Unit in a single transaction. Any failure leaves the store
// untouched.
func (o *UnitOperators[T, PT]) BulkCreate(ctx context.Context, in BulkCreateInput) (int, error) {
	if len(in.Items) == 0 {
		return 0, invalidf("At least one %s is required", o.label())
	}
	unitID, ok := utility.ParseID(in.UnitID)
	if !ok {
		return 0, invalidf("Invalid unit id")
	}
	subjectID, ok := utility.ParseID(in.SubjectID)
	if !ok {
		return 0, invalidf("Invalid subject id")
	}

	now := o.now()
	docs := make([]interface{}, 0, len(in.Items))
	ids := make([]primitive.ObjectID, 0, len(in.Items))
	for i, raw := range in.Items {
		doc, err := o.prepareItem(raw, in.RefImages, unitID, subjectID, now)
		if err != nil {
			return 0, invalidf("item %d: %s", i+1, message(err))
		}
		docs = append(docs, doc)
		ids = append(ids, doc.GetID())
	}

	err := o.db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		n, err := o.units.CountDocuments(sc, bson.M{"_id": unitID, "subjectId": subjectID}, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("find unit: %w", err)
		}
		if n == 0 {
			return notFound("Unit")
		}
		if _, err := o.coll.InsertMany(sc, docs, options.InsertMany().SetOrdered(true)); err != nil {
			return fmt.Errorf("insert %s batch: %w", o.cfg.Kind.Slug(), err)
		}
		return o.pushRefs(sc, unitID, subjectID, ids, now)
	})
	if err != nil {
		return 0, err
	}

	monitoring.QuestionsImported.WithLabelValues(o.cfg.Kind.Slug()).Add(float64(len(docs)))
	o.log.Info("bulk create", zap.String("unitId", unitID.Hex()), zap.Int("count", len(docs)))
	return len(docs), nil
}

func (o *UnitOperators[T, PT]) prepareItem(raw json.RawMessage, refImages map[string]string, unitID, subjectID primitive.ObjectID, now time.Time) (PT, error) {
	if o.cfg.Prepare == nil {
		return nil, fmt.Errorf("bulk import is not supported for %s", o.cfg.Kind.Slug())
	}
	t, err := o.cfg.Prepare(raw, refImages)
	if err != nil {
		return nil, err
	}
	doc := PT(t)
	if own := doc.GetUnitID(); !own.IsZero() && own != unitID {
		return nil, errors.New("unitId does not match the target unit")
	}
	if own := doc.GetSubjectID(); !own.IsZero() && own != subjectID {
		return nil, errors.New("subjectId does not match the target subject")
	}
	doc.SetOwner(subjectID, unitID)
	doc.SetID(primitive.NewObjectID())
	doc.Touch(now)
	if err := o.validateDoc(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// BulkDeleteResult reports requested versus removed ids.
type BulkDeleteResult struct {
	Requested int   `json:"requested"`
	Deleted   int64 `json:"deletedCount"`
}

// BulkDelete removes every well-formed id and pulls them from whichever Units
// reference them. Malformed and already-deleted ids are ignored.
func (o *UnitOperators[T, PT]) BulkDelete(ctx context.Context, rawIDs []string) (BulkDeleteResult, error) {
	result := BulkDeleteResult{Requested: len(rawIDs)}
	if len(rawIDs) == 0 {
		return result, invalidf("ids must be a non-empty array")
	}
	ids := utility.ParseIDs(rawIDs)
	if len(ids) == 0 {
		return result, nil
	}

	var owned []string
	field := o.cfg.Kind.UnitField()
	err := o.db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		owned = owned[:0]
		if o.cfg.OwnedAssets != nil {
			cur, err := o.coll.Find(sc, bson.M{"_id": bson.M{"$in": ids}})
			if err != nil {
				return fmt.Errorf("find %s batch: %w", o.cfg.Kind.Slug(), err)
			}
			var docs []T
			if err := cur.All(sc, &docs); err != nil {
				return fmt.Errorf("decode %s batch: %w", o.cfg.Kind.Slug(), err)
			}
			for i := range docs {
				owned = append(owned, o.cfg.OwnedAssets(&docs[i])...)
			}
		}

		res, err := o.coll.DeleteMany(sc, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return fmt.Errorf("delete %s batch: %w", o.cfg.Kind.Slug(), err)
		}
		result.Deleted = res.DeletedCount

		_, err = o.units.UpdateMany(sc,
			bson.M{field: bson.M{"$in": ids}},
			bson.M{"$pull": bson.M{field: bson.M{"$in": ids}}, "$set": bson.M{"updatedAt": o.now()}},
		)
		if err != nil {
			return fmt.Errorf("unlink %s batch: %w", o.cfg.Kind.Slug(), err)
		}
		return nil
	})
	if err != nil {
		return BulkDeleteResult{Requested: len(rawIDs)}, err
	}

	utility.CleanupAssets(ctx, o.assets, o.log, owned...)
	return result, nil
}

// message returns the client text of err without wrapping noise.
func message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func difference(a, b []string) []string {
	keep := make(map[string]struct{}, len(b))
	for _, s := range b {
		keep[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := keep[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
