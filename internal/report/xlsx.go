package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/dukerupert/envios/internal/model"
)

const sheetName = "Repartidores"

var headers = []string{
	"Repartidor", "Pedidos", "Entregados", "Devuelto", "En Proceso", "En Espera",
	"Pago Digital", "Contra Reembolso", "Total Recaudo", "Costo Envio", "FEE", "Total",
}

// WriteXLSX writes the driver report as a single-sheet workbook followed by
// a totals row.
func WriteXLSX(w io.Writer, rows []model.DriverReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			DriverName(r), int64(r.TotalOrders), int64(r.Delivered), int64(r.Returned),
			int64(r.InProgress), int64(r.Waiting), float64(r.DigitalPay), float64(r.CashOnDeliver),
			float64(r.Collected), float64(r.ShippingCost), float64(r.Fee), float64(r.Total),
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	t := Sum(rows)
	totalRow := len(rows) + 2
	cell, err := excelize.CoordinatesToCellName(1, totalRow)
	if err != nil {
		return err
	}
	totals := []any{
		"Total", t.Orders, t.Delivered, t.Returned, t.InProgress, t.Waiting,
		t.DigitalPay, t.CashOnDelivery, t.Collected, t.ShippingCost, t.Fee, t.Total,
	}
	if err := f.SetSheetRow(sheetName, cell, &totals); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(len(headers), totalRow)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "L1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetCellStyle(sheetName, cell, last, bold); err != nil {
		return fmt.Errorf("style totals: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "A", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", "L", 14); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
