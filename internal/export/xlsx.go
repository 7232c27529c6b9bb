// Package export writes review listings to XLSX workbooks for ops reporting.
package export

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/harborpoint/lendops/internal/model"
)

var reviewHeader = []string{
	"id", "org_id", "type", "subject_id", "loan_id", "project_id",
	"status", "confidence", "reasons", "created_at", "updated_at",
}

// WriteReviewsXLSX writes reviews to an XLSX workbook at path.
func WriteReviewsXLSX(path string, reviews []model.Review) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Reviews")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range reviewHeader {
		header.AddCell().Value = h
	}

	for _, r := range reviews {
		row := sheet.AddRow()
		row.AddCell().Value = r.ID
		row.AddCell().Value = r.OrgID
		row.AddCell().Value = string(r.Kind)
		row.AddCell().Value = r.SubjectID
		row.AddCell().Value = r.LoanID
		row.AddCell().Value = r.ProjectID
		row.AddCell().Value = string(r.Status)
		row.AddCell().Value = strconv.FormatFloat(r.Output.Confidence, 'f', 2, 64)
		row.AddCell().Value = reasonSummary(r.Output.Reasons)
		row.AddCell().Value = r.CreatedAt.Format("2006-01-02 15:04:05")
		row.AddCell().Value = r.UpdatedAt.Format("2006-01-02 15:04:05")
	}

	return eris.Wrapf(file.Save(path), "export: save %s", path)
}

func reasonSummary(reasons []model.Reason) string {
	codes := make([]string, 0, len(reasons))
	for _, r := range reasons {
		codes = append(codes, r.Code)
	}
	return strings.Join(codes, ", ")
}
