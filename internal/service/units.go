package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qbank/database"
	"qbank/internal/models"
	"qbank/internal/utility"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// UnitUpdate carries the editable Unit fields; nil leaves a field unchanged.
type UnitUpdate struct {
	Unit     *int    `json:"unit"`
	Title    *string `json:"title"`
	Subtitle *string `json:"subtitle"`
}

type UnitService struct {
	db       *database.DB
	units    *mongo.Collection
	subjects *mongo.Collection
	cascade  *cascader
	log      *zap.Logger
}

func NewUnitService(db *database.DB, assets utility.AssetStore, log *zap.Logger) *UnitService {
	return &UnitService{
		db:       db,
		units:    database.OpenCollection(db, models.UnitCollection),
		subjects: database.OpenCollection(db, models.SubjectCollection),
		cascade:  &cascader{db: db, assets: assets, log: log},
		log:      log.With(zap.String("component", "units")),
	}
}

// Create inserts the Unit and links it to its Subject in one transaction.
func (s *UnitService) Create(ctx context.Context, unit *models.Unit) (*models.Unit, error) {
	if unit == nil {
		return nil, invalidf("unit body is required")
	}
	if unit.SubjectID.IsZero() {
		return nil, invalidf("subjectId is required")
	}
	if err := validateStruct(unit); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	unit.ID = primitive.NewObjectID()
	unit.MCQs = []primitive.ObjectID{}
	unit.FillBlanks = []primitive.ObjectID{}
	unit.Descriptive = []primitive.ObjectID{}
	unit.CreatedAt, unit.UpdatedAt = now, now

	err := s.db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := s.units.InsertOne(sc, unit); err != nil {
			return fmt.Errorf("insert unit: %w", err)
		}
		res, err := s.subjects.UpdateOne(sc,
			bson.M{"_id": unit.SubjectID},
			bson.M{"$push": bson.M{"units": unit.ID}, "$set": bson.M{"updatedAt": now}},
		)
		if err != nil {
			return fmt.Errorf("link unit to subject: %w", err)
		}
		if res.MatchedCount == 0 {
			return notFound("Subject")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return unit, nil
}

func (s *UnitService) Get(ctx context.Context, id string) (*models.Unit, error) {
	oid, ok := utility.ParseID(id)
	if !ok {
		return nil, invalidf("Invalid unit id")
	}
	var unit models.Unit
	if err := s.units.FindOne(ctx, bson.M{"_id": oid}).Decode(&unit); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("Unit")
		}
		return nil, fmt.Errorf("find unit: %w", err)
	}
	return &unit, nil
}

// ListBySubject returns the Subject's Units ordered by ordinal.
func (s *UnitService) ListBySubject(ctx context.Context, subjectID string) ([]models.Unit, error) {
	sid, ok := utility.ParseID(subjectID)
	if !ok {
		return nil, invalidf("Invalid subject id")
	}
	n, err := s.subjects.CountDocuments(ctx, bson.M{"_id": sid}, options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("find subject: %w", err)
	}
	if n == 0 {
		return nil, notFound("Subject")
	}

	cur, err := s.units.Find(ctx, bson.M{"subjectId": sid},
		options.Find().SetSort(bson.D{{Key: "unit", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	units := []models.Unit{}
	if err := cur.All(ctx, &units); err != nil {
		return nil, fmt.Errorf("decode units: %w", err)
	}
	return units, nil
}

func (s *UnitService) Update(ctx context.Context, id string, in UnitUpdate) (*models.Unit, error) {
	oid, ok := utility.ParseID(id)
	if !ok {
		return nil, invalidf("Invalid unit id")
	}
	set := bson.M{}
	if in.Unit != nil {
		if *in.Unit < 1 {
			return nil, invalidf("unit must be at least 1")
		}
		set["unit"] = *in.Unit
	}
	if in.Title != nil {
		if *in.Title == "" {
			return nil, invalidf("title is required")
		}
		set["title"] = *in.Title
	}
	if in.Subtitle != nil {
		set["subtitle"] = *in.Subtitle
	}
	if len(set) == 0 {
		return nil, invalidf("nothing to update")
	}
	set["updatedAt"] = time.Now().UTC().Truncate(time.Millisecond)

	var unit models.Unit
	err := s.units.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&unit)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("Unit")
		}
		return nil, fmt.Errorf("update unit: %w", err)
	}
	return &unit, nil
}

// Delete removes every question of the Unit (diagram assets first), then
// removes the Unit and unlinks it from its Subject in one transaction.
func (s *UnitService) Delete(ctx context.Context, id string) (*CascadeReport, error) {
	unit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	report := &CascadeReport{}
	if err := s.cascade.deleteUnitTree(ctx, unit, report); err != nil {
		return report, err
	}

	err = s.db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := s.units.DeleteOne(sc, bson.M{"_id": unit.ID})
		if err != nil {
			return fmt.Errorf("delete unit: %w", err)
		}
		report.Units = res.DeletedCount
		_, err = s.subjects.UpdateOne(sc,
			bson.M{"_id": unit.SubjectID},
			bson.M{"$pull": bson.M{"units": unit.ID}, "$set": bson.M{"updatedAt": time.Now().UTC().Truncate(time.Millisecond)}},
		)
		if err != nil {
			return fmt.Errorf("unlink unit from subject: %w", err)
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	s.log.Info("unit deleted",
		zap.String("unitId", unit.ID.Hex()),
		zap.Int64("mcqs", report.MCQs),
		zap.Int64("fillBlanks", report.FillBlanks),
		zap.Int64("descriptives", report.Descriptives),
		zap.Int("assets", report.Assets),
	)
	return report, nil
}
