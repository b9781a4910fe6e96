package services

import (
	"bytes"
	"fmt"
	"strings"

	"support_directory_go/models"

	"github.com/xuri/excelize/v2"
)

// ExportResources renders a discovery result as an xlsx workbook with one
// row per resource, in result order
func ExportResources(domain ResourceDomain, rows []models.Resource) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := domain.Label
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := []string{"Name", "Address", "Postcode", "Phone", "Website", "Distance", "Verified"}
	for _, field := range domain.Fields {
		headers = append(headers, field.JSON)
	}
	for _, c := range domain.Categories {
		headers = append(headers, c.JSON)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for r, resource := range rows {
		base := resource.Base()
		state := resourceState(resource)

		values := []interface{}{base.Name, base.Address, base.Postcode, base.Phone, base.Website, "", base.IsVerified}
		if base.Distance != nil {
			values[5] = fmt.Sprintf("%.2f", *base.Distance)
		}
		for _, field := range domain.Fields {
			values = append(values, state[field.JSON])
		}
		for _, c := range domain.Categories {
			values = append(values, strings.Join(base.Attributes[c.JSON], ", "))
		}

		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	f.SetColWidth(sheet, "A", lastCol, 20)
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}
