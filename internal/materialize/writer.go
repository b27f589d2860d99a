package materialize

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Writer persists materialized outputs under a results directory.
type Writer struct {
	Dir string
}

// NewWriter creates a Writer rooted at dir ("results" if empty).
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "results"
	}
	return &Writer{Dir: dir}
}

var unsafePathChars = regexp.MustCompile(`[^a-z0-9_-]+`)

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	return unsafePathChars.ReplaceAllString(s, "")
}

// resultDocument is the on-disk envelope for one language view.
type resultDocument struct {
	Success         bool             `json:"success"`
	Platform        string           `json:"platform"`
	Category        string           `json:"category"`
	Keyword         string           `json:"keyword"`
	Count           int              `json:"count"`
	EnhancementRate string           `json:"enhancement_rate"`
	GeneratedAt     string           `json:"generated_at"`
	Results         []map[string]any `json:"results"`
}

// Write persists the English and original-language JSON documents and
// returns their paths.
func (w *Writer) Write(out *Output) (englishPath, originalPath string, err error) {
	label := slugify(out.Category)
	if label == "" {
		label = slugify(out.Keyword)
	}
	if label == "" {
		label = "all"
	}
	platform := slugify(out.Platform)

	dir := filepath.Join(w.Dir, platform+"_"+label)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", eris.Wrap(err, "materialize: create results dir")
	}

	englishPath = filepath.Join(dir, fmt.Sprintf("%s_english_%s.json", platform, label))
	originalPath = filepath.Join(dir, fmt.Sprintf("%s_japanese_%s.json", platform, label))

	if err := w.writeDocument(englishPath, out, out.English); err != nil {
		return "", "", err
	}
	if err := w.writeDocument(originalPath, out, out.Original); err != nil {
		return "", "", err
	}
	return englishPath, originalPath, nil
}

func (w *Writer) writeDocument(path string, out *Output, results []map[string]any) error {
	doc := resultDocument{
		Success:         true,
		Platform:        out.Platform,
		Category:        out.Category,
		Keyword:         out.Keyword,
		Count:           len(results),
		EnhancementRate: out.Stats.EnhancementRate,
		GeneratedAt:     out.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
		Results:         results,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "materialize: marshal results")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "materialize: write %s", path)
	}
	return nil
}

// xlsxColumns is the fixed column layout for spreadsheet export.
var xlsxColumns = []string{
	"title", "url", "project_owner", "owner_country", "status",
	"achievement_rate", "supporters", "amount", "support_amount",
	"crowdfund_start_date", "crowdfund_end_date",
	"current_or_completed_project", "category", "platform", "description",
}

// WriteXLSX exports the English view as a spreadsheet next to the JSON
// documents and returns its path.
func (w *Writer) WriteXLSX(out *Output) (string, error) {
	label := slugify(out.Category)
	if label == "" {
		label = slugify(out.Keyword)
	}
	if label == "" {
		label = "all"
	}
	platform := slugify(out.Platform)

	dir := filepath.Join(w.Dir, platform+"_"+label)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "materialize: create results dir")
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Results")
	if err != nil {
		return "", eris.Wrap(err, "materialize: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range xlsxColumns {
		header.AddCell().Value = col
	}

	for _, doc := range out.English {
		row := sheet.AddRow()
		for _, col := range xlsxColumns {
			cell := row.AddCell()
			switch v := doc[col].(type) {
			case string:
				cell.Value = v
			case nil:
			default:
				cell.Value = fmt.Sprint(v)
			}
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_english_%s.xlsx", platform, label))
	if err := file.Save(path); err != nil {
		return "", eris.Wrapf(err, "materialize: save %s", path)
	}
	return path, nil
}
