package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// SubjectUpdate carries the editable Subject fields; nil leaves a field unchanged.
type SubjectUpdate struct {
	Name        *string `json:"name"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
}

type SubjectService struct {
	db       *database.DB
	subjects *mongo.Collection
	units    *mongo.Collection
	assets   utility.AssetStore
	cascade  *cascader
	log      *zap.Logger
	folder   string
	maxBytes int64
}

func NewSubjectService(db *database.DB, assets utility.AssetStore, log *zap.Logger, folder string, maxBytes int64) *SubjectService {
	return &SubjectService{
		db:       db,
		subjects: database.OpenCollection(db, models.SubjectCollection),
		units:    database.OpenCollection(db, models.UnitCollection),
		assets:   assets,
		cascade:  &cascader{db: db, assets: assets, log: log},
		log:      log.With(zap.String("component", "subjects")),
		folder:   folder,
		maxBytes: maxBytes,
	}
}

func (s *SubjectService) uploadThumbnail(ctx context.Context, thumbnail *utility.Asset) (string, error) {
	if thumbnail == nil {
		return "", nil
	}
	if s.assets == nil {
		return "", invalidf("image storage is not configured")
	}
	if err := utility.ValidateImage(*thumbnail, s.maxBytes); err != nil {
		return "", invalidf("%v", err)
	}
	res, err := s.assets.Upload(ctx, s.folder, *thumbnail)
	if err != nil {
		return "", fmt.Errorf("upload thumbnail: %w", err)
	}
	return res.URL, nil
}

// Create stores a Subject, uploading its optional thumbnail first. The
// thumbnail is removed again if the insert fails.
func (s *SubjectService) Create(ctx context.Context, subject *models.Subject, thumbnail *utility.Asset) (*models.Subject, error) {
	if subject == nil {
		return nil, invalidf("subject body is required")
	}
	subject.Name = strings.TrimSpace(subject.Name)
	if err := validateStruct(subject); err != nil {
		return nil, err
	}

	url, err := s.uploadThumbnail(ctx, thumbnail)
	if err != nil {
		return nil, err
	}
	if url != "" {
		subject.Thumbnail = url
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	subject.ID = primitive.NewObjectID()
	subject.Units = []primitive.ObjectID{}
	subject.CreatedAt, subject.UpdatedAt = now, now

	if _, err := s.subjects.InsertOne(ctx, subject); err != nil {
		utility.CleanupAssets(ctx, s.assets, s.log, url)
		if mongo.IsDuplicateKeyError(err) {
			return nil, conflict(fmt.Sprintf("Subject %q already exists", subject.Name), err)
		}
		return nil, fmt.Errorf("insert subject: %w", err)
	}
	return subject, nil
}

func (s *SubjectService) List(ctx context.Context) ([]models.Subject, error) {
	cur, err := s.subjects.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	subjects := []models.Subject{}
	if err := cur.All(ctx, &subjects); err != nil {
		return nil, fmt.Errorf("decode subjects: %w", err)
	}
	return subjects, nil
}

func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	oid, ok := utility.ParseID(id)
	if !ok {
		return nil, invalidf("Invalid subject id")
	}
	var subject models.Subject
	if err := s.subjects.FindOne(ctx, bson.M{"_id": oid}).Decode(&subject); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("Subject")
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return &subject, nil
}

// Update edits a Subject. A new thumbnail replaces the old one, which is
// deleted after the write succeeds.
func (s *SubjectService) Update(ctx context.Context, id string, in SubjectUpdate, thumbnail *utility.Asset) (*models.Subject, error) {
	oid, ok := utility.ParseID(id)
	if !ok {
		return nil, invalidf("Invalid subject id")
	}
	set := bson.M{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalidf("name is required")
		}
		if len(name) > 200 {
			return nil, invalidf("name must be at most 200 characters")
		}
		set["name"] = name
	}
	if in.Code != nil {
		set["code"] = *in.Code
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if len(set) == 0 && thumbnail == nil {
		return nil, invalidf("nothing to update")
	}

	url, err := s.uploadThumbnail(ctx, thumbnail)
	if err != nil {
		return nil, err
	}
	if url != "" {
		set["thumbnail"] = url
	}
	set["updatedAt"] = time.Now().UTC().Truncate(time.Millisecond)

	var before models.Subject
	err = s.subjects.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		utility.CleanupAssets(ctx, s.assets, s.log, url)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("Subject")
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, conflict("Subject name already exists", err)
		}
		return nil, fmt.Errorf("update subject: %w", err)
	}
	if url != "" && before.Thumbnail != url {
		utility.CleanupAssets(ctx, s.assets, s.log, before.Thumbnail)
	}
	return s.Get(ctx, id)
}

// Delete cascades through the Subject: thumbnail, then for each Unit its
// questions (diagram assets before documents) and the Unit itself, then the
// Subject. A final sweep by subjectId catches questions no Unit linked.
func (s *SubjectService) Delete(ctx context.Context, id string) (*CascadeReport, error) {
	subject, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	report := &CascadeReport{}

	if subject.Thumbnail != "" {
		utility.CleanupAssets(ctx, s.assets, s.log, subject.Thumbnail)
		report.Assets++
	}

	linked := subject.Units
	if linked == nil {
		linked = []primitive.ObjectID{}
	}
	cur, err := s.units.Find(ctx, bson.M{"$or": bson.A{
		bson.M{"_id": bson.M{"$in": linked}},
		bson.M{"subjectId": subject.ID},
	}})
	if err != nil {
		return report, fmt.Errorf("find units: %w", err)
	}
	var units []models.Unit
	if err := cur.All(ctx, &units); err != nil {
		return report, fmt.Errorf("decode units: %w", err)
	}

	for i := range units {
		if err := s.cascade.deleteUnitTree(ctx, &units[i], report); err != nil {
			return report, err
		}
		res, err := s.units.DeleteOne(ctx, bson.M{"_id": units[i].ID})
		if err != nil {
			return report, fmt.Errorf("delete unit: %w", err)
		}
		report.Units += res.DeletedCount
	}

	if err := s.cascade.clearQuestions(ctx, bson.M{"subjectId": subject.ID}, report); err != nil {
		return report, err
	}

	if _, err := s.subjects.DeleteOne(ctx, bson.M{"_id": subject.ID}); err != nil {
		return report, fmt.Errorf("delete subject: %w", err)
	}

	s.log.Info("subject deleted",
		zap.String("subjectId", subject.ID.Hex()),
		zap.Int64("units", report.Units),
		zap.Int64("mcqs", report.MCQs),
		zap.Int64("fillBlanks", report.FillBlanks),
		zap.Int64("descriptives", report.Descriptives),
		zap.Int("assets", report.Assets),
	)
	return report, nil
}
