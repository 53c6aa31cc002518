package httpserver

import (
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/costeo/internal/domain"
)

const salesSheet = "Ventas"

var salesHeader = []any{"Fecha", "Venta", "Producto", "Cantidad", "Precio unitario", "Costo unitario", "Subtotal", "Costo", "Ganancia"}

// salesWorkbook lays out one row per sale item, followed by a totals row
// under the Subtotal, Costo and Ganancia columns.
func salesWorkbook(sales []domain.Sale) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(salesSheet, "A1", &salesHeader); err != nil {
		f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(salesSheet, 1, 1, bold)
	}

	row := 2
	var revenue, cost float64
	for _, s := range sales {
		for _, it := range s.Items {
			name := it.ProductID.String()
			if it.Product != nil {
				name = it.Product.Name
			}
			subtotal := it.UnitPrice * float64(it.Quantity)
			lineCost := it.UnitCost * float64(it.Quantity)
			cells := []any{
				s.DateTime.UTC().Format("2006-01-02 15:04"),
				s.ID.String(),
				name,
				it.Quantity,
				domain.RoundCurrency(it.UnitPrice),
				domain.RoundCurrency(it.UnitCost),
				domain.RoundCurrency(subtotal),
				domain.RoundCurrency(lineCost),
				domain.RoundCurrency(subtotal - lineCost),
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(salesSheet, cell, &cells); err != nil {
				f.Close()
				return nil, err
			}
			row++
		}
		revenue += s.TotalAmount
		cost += s.Cost()
	}

	totals := []any{"Total", "", "", "", "", "", domain.RoundCurrency(revenue), domain.RoundCurrency(cost), domain.RoundCurrency(revenue - cost)}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(salesSheet, cell, &totals); err != nil {
		f.Close()
		return nil, err
	}
	if bold != 0 {
		_ = f.SetRowStyle(salesSheet, row, row, bold)
	}
	_ = f.SetColWidth(salesSheet, "A", "C", 22)
	return f, nil
}
