// Package export renders extraction results as XLSX workbooks.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

const (
	SheetPO     = "PO"
	SheetItems  = "Items"
	SheetErrors = "Errors"
)

// ItemColumns is the header row of the Items sheet.
var ItemColumns = []string{
	"#",
	"Vendor Style Code",
	"Item Ref No",
	"Item PO No",
	"Invoice Number",
	"Order Qty",
	"Metal",
	"Tone",
	"Category",
	"Stock Type",
	"Make Type",
	"Customer Production Instruction",
	"Special Remarks",
	"Design Production Instruction",
	"Stamp Instruction",
	"Item Size",
	"Deadline Date",
	"Shipping Date",
	"Incomplete",
}

type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ResultXLSX returns a workbook with a PO header sheet, an Items sheet and,
// when the result carries validation errors, an Errors sheet.
func (s *Service) ResultXLSX(ctx context.Context, res *entity.ExtractionResult) ([]byte, error) {
	start := time.Now()
	if res == nil {
		return nil, common.NewAppError("EXPORT_ERROR", "nothing to export", common.ErrInvalidInput)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", SheetPO); err != nil {
		return nil, err
	}
	if err := writeHeaderSheet(f, res); err != nil {
		return nil, err
	}
	if err := writeItemsSheet(f, res.Items); err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		if err := writeErrorsSheet(f, res.Errors); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"po_number", res.Header.PONumber,
		"rows", len(res.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeHeaderSheet(f *excelize.File, res *entity.ExtractionResult) error {
	h := res.Header
	var total any = ""
	if h.TotalValue != nil {
		total = *h.TotalValue
	}
	rows := [][2]any{
		{"PO Number", h.PONumber},
		{"PO Date", h.PODate},
		{"Client Name", h.ClientName},
		{"Total Items", h.TotalItems},
		{"Incomplete Items", h.IncompleteItems},
		{"Total Value", total},
		{"Status", h.Status},
		{"Confidence", res.Confidence},
		{"Needs Review", res.NeedsReview},
		{"Attempts", res.Attempts},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetPO, cell, &[]any{r[0], r[1]}); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(SheetPO, "A", "A", 18)
	_ = f.SetColWidth(SheetPO, "B", "B", 32)
	return nil
}

func writeItemsSheet(f *excelize.File, items []entity.LineItem) error {
	if _, err := f.NewSheet(SheetItems); err != nil {
		return err
	}
	header := make([]any, len(ItemColumns))
	for i, c := range ItemColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetItems, "A1", &header); err != nil {
		return err
	}

	for i, it := range items {
		var qty any = ""
		if it.OrderQty != nil {
			qty = *it.OrderQty
		}
		row := []any{
			i + 1,
			it.VendorStyleCode,
			it.ItemRefNo,
			it.ItemPoNo,
			it.InvoiceNumber,
			qty,
			it.Metal,
			it.Tone,
			it.Category,
			deref(it.StockType),
			deref(it.MakeType),
			deref(it.CustomerProductionInstruction),
			deref(it.SpecialRemarks),
			deref(it.DesignProductionInstruction),
			deref(it.StampInstruction),
			deref(it.ItemSize),
			deref(it.DeadlineDate),
			deref(it.ShippingDate),
			it.IsIncomplete,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetItems, cell, &row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(SheetItems, "A", "A", 5)
	_ = f.SetColWidth(SheetItems, "B", "E", 18)
	_ = f.SetColWidth(SheetItems, "L", "O", 40)
	return nil
}

func writeErrorsSheet(f *excelize.File, errs []entity.ValidationError) error {
	if _, err := f.NewSheet(SheetErrors); err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetErrors, "A1", &[]any{"Kind", "Item", "Message"}); err != nil {
		return err
	}
	for i, e := range errs {
		var item any = ""
		if e.ItemIndex != nil {
			item = *e.ItemIndex
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetErrors, cell, &[]any{string(e.Kind), item, e.Message}); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(SheetErrors, "C", "C", 80)
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
