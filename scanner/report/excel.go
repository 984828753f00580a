package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const (
	issuesSheet     = "Issues"
	injectionsSheet = "Injection Points"
)

// ExportExcel writes every registered issue and injection point to an xlsx file
func (r *Reporter) ExportExcel(path string) (string, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", issuesSheet); err != nil {
		file.NewSheet(issuesSheet)
	}
	if err := writeSheet(file, issuesSheet, []string{"Domain", "Vulnerability", "Severity", "URL", "ID", "Evidence"}, r.issueRows()); err != nil {
		return "", errors.Wrap(err, "failed to write issues sheet")
	}

	file.NewSheet(injectionsSheet)
	if err := writeSheet(file, injectionsSheet, []string{"Domain", "URL", "Field", "Method", "Value"}, r.injectionRows()); err != nil {
		return "", errors.Wrap(err, "failed to write injection points sheet")
	}

	index, _ := file.GetSheetIndex(issuesSheet)
	file.SetActiveSheet(index)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.Wrap(err, "failed to create output directory")
	}
	if err := file.SaveAs(path); err != nil {
		return "", errors.Wrap(err, "failed to save xlsx report")
	}
	log.Info().Str("file", path).Msg("saved xlsx report")
	return path, nil
}

func (r *Reporter) issueRows() [][]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([][]interface{}, 0)
	for _, domain := range sortedKeys(r.issues) {
		vulns := r.issues[domain]
		names := make([]string, 0, len(vulns))
		for name := range vulns {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			for _, issue := range vulns[name] {
				custom := ""
				if issue.Evidence != nil {
					if data, err := json.Marshal(convertMap(issue.Evidence.Custom())); err == nil {
						custom = string(data)
					}
				}
				rows = append(rows, []interface{}{domain, name, issue.Severity.String(), issue.URL, issue.ID, custom})
			}
		}
	}
	return rows
}

func (r *Reporter) injectionRows() [][]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([][]interface{}, 0)
	for _, domain := range sortedKeys(r.injectionPoints) {
		for _, p := range r.injectionPoints[domain] {
			rows = append(rows, []interface{}{domain, p.URL, p.Field, p.Method, p.Value})
		}
	}
	return rows
}

func writeSheet(file *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	headerStyle, _ := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 12},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	file.SetColWidth(sheet, "A", "A", 25)
	file.SetColWidth(sheet, "B", "B", 35)
	file.SetColWidth(sheet, "C", "E", 40)
	file.SetColWidth(sheet, "F", "F", 60)

	for idx, header := range headers {
		cell, err := excelize.CoordinatesToCellName(idx+1, 1)
		if err != nil {
			return err
		}
		file.SetCellValue(sheet, cell, header)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	file.SetCellStyle(sheet, "A1", last, headerStyle)

	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
