package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"qbank/internal/models"
	"qbank/internal/monitoring"
	"qbank/internal/utility"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultUploadBatchSize is how many images are uploaded concurrently.
const DefaultUploadBatchSize = 5

// BulkCreator is the bulk insert half of UnitOperators.
type BulkCreator interface {
	Kind() models.QuestionKind
	BulkCreate(ctx context.Context, in BulkCreateInput) (int, error)
}

type ImportRequest struct {
	Kind      models.QuestionKind
	UnitID    string
	SubjectID string
	// Files holds raw JSON documents, each a bare array or an envelope object.
	Files  [][]byte
	Images []utility.Asset
}

type ImageFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type ImportResult struct {
	CreatedCount   int               `json:"createdCount"`
	UploadedImages map[string]string `json:"uploadedImages,omitempty"`
	FailedImages   []ImageFailure    `json:"failedImages,omitempty"`
	UnresolvedRefs []string          `json:"unresolvedRefs,omitempty"`
}

// Importer turns uploaded JSON files and images into one bulk create.
type Importer struct {
	creators  map[models.QuestionKind]BulkCreator
	assets    utility.AssetStore
	log       *zap.Logger
	folder    string
	maxBytes  int64
	batchSize int
}

func NewImporter(assets utility.AssetStore, log *zap.Logger, folder string, maxBytes int64, batchSize int, creators ...BulkCreator) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultUploadBatchSize
	}
	im := &Importer{
		creators:  make(map[models.QuestionKind]BulkCreator, len(creators)),
		assets:    assets,
		log:       log,
		folder:    folder,
		maxBytes:  maxBytes,
		batchSize: batchSize,
	}
	for _, c := range creators {
		im.creators[c.Kind()] = c
	}
	return im
}

func (im *Importer) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	creator, ok := im.creators[req.Kind]
	if !ok {
		return nil, invalidf("bulk import is not supported for %s", req.Kind.Slug())
	}
	if len(req.Files) == 0 {
		return nil, invalidf("At least one JSON file is required")
	}
	if !utility.IsValidID(req.UnitID) {
		return nil, invalidf("Invalid unit id")
	}
	if !utility.IsValidID(req.SubjectID) {
		return nil, invalidf("Invalid subject id")
	}

	var items []json.RawMessage
	for i, file := range req.Files {
		parsed, err := UnwrapItems(file, req.Kind)
		if err != nil {
			return nil, invalidf("file %d: %s", i+1, message(err))
		}
		items = append(items, parsed...)
	}
	if len(items) == 0 {
		return nil, invalidf("No %s items found in the uploaded files", req.Kind.Slug())
	}

	var (
		uploaded map[string]string
		failed   []ImageFailure
	)
	if req.Kind == models.KindDescriptive {
		uploaded, failed = im.UploadImages(ctx, req.Images)
	} else {
		// Only diagram refs consume images.
		for _, img := range req.Images {
			failed = append(failed, ImageFailure{
				Filename: img.Filename,
				Error:    fmt.Sprintf("images are not used by %s imports", req.Kind.Slug()),
			})
		}
	}
	if err := ctx.Err(); err != nil {
		im.discard(uploaded)
		return nil, err
	}

	result := &ImportResult{
		UploadedImages: uploaded,
		FailedImages:   failed,
	}
	if req.Kind == models.KindDescriptive {
		result.UnresolvedRefs = unresolvedRefs(items, uploaded)
	}

	created, err := creator.BulkCreate(ctx, BulkCreateInput{
		UnitID:    req.UnitID,
		SubjectID: req.SubjectID,
		Items:     items,
		RefImages: uploaded,
	})
	if err != nil {
		im.discard(uploaded)
		return nil, err
	}
	result.CreatedCount = created

	if len(result.UnresolvedRefs) > 0 {
		im.log.Warn("import left diagram refs unresolved",
			zap.String("unitId", req.UnitID), zap.Strings("refs", result.UnresolvedRefs))
	}
	im.log.Info("import finished",
		zap.String("kind", req.Kind.Slug()),
		zap.String("unitId", req.UnitID),
		zap.Int("created", created),
		zap.Int("images", len(uploaded)),
		zap.Int("failedImages", len(failed)),
	)
	return result, nil
}

// UploadImages uploads assets in fixed-width batches. A failed image is
// reported and skipped, as is any repeat of an earlier filename. The returned
// map is keyed by original filename.
func (im *Importer) UploadImages(ctx context.Context, images []utility.Asset) (map[string]string, []ImageFailure) {
	uploaded := make(map[string]string, len(images))
	var failed []ImageFailure
	if len(images) == 0 {
		return uploaded, nil
	}
	if im.assets == nil {
		for _, img := range images {
			failed = append(failed, ImageFailure{Filename: img.Filename, Error: "image storage is not configured"})
		}
		return uploaded, failed
	}

	// Filenames key the result, so repeats are rejected.
	unique := make([]utility.Asset, 0, len(images))
	seen := make(map[string]bool, len(images))
	for _, img := range images {
		if seen[img.Filename] {
			failed = append(failed, ImageFailure{Filename: img.Filename, Error: "duplicate filename"})
			continue
		}
		seen[img.Filename] = true
		unique = append(unique, img)
	}
	images = unique

	var mu sync.Mutex
	for start := 0; start < len(images); start += im.batchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + im.batchSize
		if end > len(images) {
			end = len(images)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, img := range images[start:end] {
			img := img
			g.Go(func() error {
				url, err := im.uploadOne(gctx, img)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					monitoring.AssetsUploaded.WithLabelValues("error").Inc()
					im.log.Warn("image upload failed", zap.String("filename", img.Filename), zap.Error(err))
					failed = append(failed, ImageFailure{Filename: img.Filename, Error: err.Error()})
					return nil
				}
				monitoring.AssetsUploaded.WithLabelValues("ok").Inc()
				uploaded[img.Filename] = url
				return nil
			})
		}
		_ = g.Wait()
	}

	sort.Slice(failed, func(i, j int) bool { return failed[i].Filename < failed[j].Filename })
	return uploaded, failed
}

func (im *Importer) uploadOne(ctx context.Context, img utility.Asset) (string, error) {
	if err := utility.ValidateImage(img, im.maxBytes); err != nil {
		return "", err
	}
	res, err := im.assets.Upload(ctx, im.folder, img)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", img.Filename, err)
	}
	return res.URL, nil
}

func (im *Importer) discard(uploaded map[string]string) {
	if len(uploaded) == 0 {
		return
	}
	urls := make([]string, 0, len(uploaded))
	for _, url := range uploaded {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	utility.CleanupAssets(context.Background(), im.assets, im.log, urls...)
}

// unresolvedRefs lists diagram refs that no uploaded image matches. Items that
// fail to decode are left for BulkCreate to reject.
func unresolvedRefs(items []json.RawMessage, uploaded map[string]string) []string {
	var refs []string
	for _, raw := range items {
		var probe struct {
			Answer []models.AnswerBlock `json:"answer"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			continue
		}
		for _, block := range probe.Answer {
			if block.Type != models.BlockDiagram || block.Ref == "" {
				continue
			}
			if _, ok := utility.FindMatchingURL(block.Ref, uploaded); !ok {
				refs = append(refs, block.Ref)
			}
		}
	}
	return refs
}
