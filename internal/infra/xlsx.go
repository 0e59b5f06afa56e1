package infra

import (
	"fmt"
	"io"

	"requisiciones/internal/dto"

	"github.com/xuri/excelize/v2"
)

const hojaComparativo = "Comparativo"

// ExportarComparativoXLSX writes the quotation comparison matrix as a workbook:
// one row per line item, two columns (unit price, amount) per provider.
// The lowest price of each row is filled green and winners are bold.
func ExportarComparativoXLSX(comp *dto.ComparativoResponse, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(hojaComparativo)
	if err != nil {
		return fmt.Errorf("xlsx: new sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("xlsx: delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("xlsx: header style: %w", err)
	}
	menorStyle, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
		NumFmt: 4,
	})
	if err != nil {
		return fmt.Errorf("xlsx: lowest price style: %w", err)
	}
	ganadorStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: []excelize.Border{{Type: "bottom", Color: "#000000", Style: 2}},
		NumFmt: 4,
	})
	if err != nil {
		return fmt.Errorf("xlsx: winner style: %w", err)
	}
	montoStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("xlsx: amount style: %w", err)
	}

	set := func(col, row int, v interface{}) (string, error) {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return "", err
		}
		return cell, f.SetCellValue(hojaComparativo, cell, v)
	}

	estado := "abierta"
	if comp.Cerrada {
		estado = "cerrada"
	}
	if _, err := set(1, 1, fmt.Sprintf("Cuadro comparativo %s (recepción %s)", comp.Folio, estado)); err != nil {
		return err
	}

	// Header row 3: fixed columns then a pair per provider.
	const filaEncabezado = 3
	fijas := []string{"Partida", "Producto", "Cantidad"}
	for i, h := range fijas {
		cell, err := set(i+1, filaEncabezado, h)
		if err != nil {
			return err
		}
		_ = f.SetCellStyle(hojaComparativo, cell, cell, headerStyle)
	}
	columna := make(map[uint]int, len(comp.Proveedores))
	for i, p := range comp.Proveedores {
		col := len(fijas) + 1 + i*2
		columna[p.ProveedorID] = col
		for j, h := range []string{p.RazonSocial + " P.U.", p.RazonSocial + " importe"} {
			cell, err := set(col+j, filaEncabezado, h)
			if err != nil {
				return err
			}
			_ = f.SetCellStyle(hojaComparativo, cell, cell, headerStyle)
		}
	}

	for i, fila := range comp.Filas {
		row := filaEncabezado + 1 + i
		if _, err := set(1, row, fila.PartidaID); err != nil {
			return err
		}
		if _, err := set(2, row, fila.Producto); err != nil {
			return err
		}
		if _, err := set(3, row, fila.Cantidad.InexactFloat64()); err != nil {
			return err
		}
		for _, celda := range fila.Celdas {
			col, ok := columna[celda.ProveedorID]
			if !ok || celda.PrecioUnitario == nil {
				continue
			}
			style := montoStyle
			switch {
			case celda.EsGanador:
				style = ganadorStyle
			case celda.EsMenor:
				style = menorStyle
			}
			pu, err := set(col, row, celda.PrecioUnitario.InexactFloat64())
			if err != nil {
				return err
			}
			_ = f.SetCellStyle(hojaComparativo, pu, pu, style)
			if celda.Importe != nil {
				imp, err := set(col+1, row, celda.Importe.InexactFloat64())
				if err != nil {
					return err
				}
				_ = f.SetCellStyle(hojaComparativo, imp, imp, style)
			}
		}
	}

	ultima, _ := excelize.ColumnNumberToName(len(fijas) + 2*len(comp.Proveedores))
	if ultima == "" {
		ultima = "C"
	}
	_ = f.SetColWidth(hojaComparativo, "A", "A", 10)
	_ = f.SetColWidth(hojaComparativo, "B", "B", 40)
	_ = f.SetColWidth(hojaComparativo, "C", ultima, 15)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}
