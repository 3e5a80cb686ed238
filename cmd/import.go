package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"qbank/internal/models"
	"qbank/internal/service"
	"qbank/internal/utility"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-import questions from local JSON files into a unit",
	Example: `  qbank import --kind descriptive --unit 64b7... --subject 64b6... \
    --file unit1.json --images ./diagrams`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("kind", "", "question kind: mcq, fill-blank or descriptive")
	importCmd.Flags().String("unit", "", "target unit id")
	importCmd.Flags().String("subject", "", "target subject id")
	importCmd.Flags().StringSlice("file", nil, "JSON file to import (repeatable)")
	importCmd.Flags().String("images", "", "directory of images referenced by diagram refs")
	_ = importCmd.MarkFlagRequired("kind")
	_ = importCmd.MarkFlagRequired("unit")
	_ = importCmd.MarkFlagRequired("subject")
	_ = importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	kindFlag, _ := cmd.Flags().GetString("kind")
	kind, err := models.ParseKind(kindFlag)
	if err != nil {
		return err
	}
	unitID, _ := cmd.Flags().GetString("unit")
	subjectID, _ := cmd.Flags().GetString("subject")
	paths, _ := cmd.Flags().GetStringSlice("file")
	imageDir, _ := cmd.Flags().GetString("images")

	files := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, data)
	}
	images, err := localImages(imageDir)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.qb.Importer.Import(cmd.Context(), service.ImportRequest{
		Kind:      kind,
		UnitID:    unitID,
		SubjectID: subjectID,
		Files:     files,
		Images:    images,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// localImages lists the regular files of dir as uploadable assets.
func localImages(dir string) ([]utility.Asset, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read images dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var assets []utility.Asset
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, e.Name())
		assets = append(assets, utility.Asset{
			Filename: e.Name(),
			Size:     info.Size(),
			Open: func() (io.ReadCloser, error) {
				return os.Open(path)
			},
		})
	}
	return assets, nil
}
