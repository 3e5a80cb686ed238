package service

import (
	"qbank/database"
	"qbank/internal/models"
	"qbank/internal/utility"

	"go.uber.org/zap"
)

type Options struct {
	Folder          string
	MaxImageBytes   int64
	UploadBatchSize int
}

// QuestionBank groups the services behind the HTTP and CLI surfaces.
type QuestionBank struct {
	MCQs        *UnitOperators[models.MCQ, *models.MCQ]
	FillBlanks  *UnitOperators[models.FillBlank, *models.FillBlank]
	Descriptive *UnitOperators[models.Descriptive, *models.Descriptive]
	Subjects    *SubjectService
	Units       *UnitService
	Importer    *Importer
}

func New(db *database.DB, assets utility.AssetStore, log *zap.Logger, opts Options) *QuestionBank {
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = utility.MaxImageBytes
	}
	qb := &QuestionBank{
		MCQs:        NewUnitOperators[models.MCQ](db, assets, log, MCQConfig()),
		FillBlanks:  NewUnitOperators[models.FillBlank](db, assets, log, FillBlankConfig()),
		Descriptive: NewUnitOperators[models.Descriptive](db, assets, log, DescriptiveConfig()),
		Subjects:    NewSubjectService(db, assets, log, opts.Folder, opts.MaxImageBytes),
		Units:       NewUnitService(db, assets, log),
	}
	qb.Importer = NewImporter(assets, log.With(zap.String("component", "import")),
		opts.Folder, opts.MaxImageBytes, opts.UploadBatchSize,
		qb.MCQs, qb.FillBlanks, qb.Descriptive)
	return qb
}

func MCQConfig() OperatorConfig[models.MCQ] {
	return OperatorConfig[models.MCQ]{
		Kind:    models.KindMCQ,
		Prepare: prepareMCQ,
		Check:   checkMCQ,
	}
}

func FillBlankConfig() OperatorConfig[models.FillBlank] {
	return OperatorConfig[models.FillBlank]{
		Kind:    models.KindFillBlank,
		Prepare: prepareFillBlank,
	}
}

func DescriptiveConfig() OperatorConfig[models.Descriptive] {
	return OperatorConfig[models.Descriptive]{
		Kind:        models.KindDescriptive,
		Prepare:     prepareDescriptive,
		Check:       checkDescriptive,
		OwnedAssets: (*models.Descriptive).DiagramURLs,
	}
}
