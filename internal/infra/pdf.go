package infra

// pdf.go: purchase-order document rendered with go-pdf/fpdf.
// One document per winning provider:
//   - Institution header, requisition folio and order folio
//   - Provider name and RFC
//   - Line table (product, quantity, unit price, amount)
//   - Subtotal, VAT (when the order includes it) and total

import (
	"fmt"
	"io"

	"requisiciones/internal/dto"

	"github.com/go-pdf/fpdf"
)

// GenerateOrdenPDF renders the first order of resumen into w. The caller
// narrows resumen to a single provider and guarantees its folio is set.
func GenerateOrdenPDF(resumen *dto.OrdenesResponse, institucion string, w io.Writer) error {
	if len(resumen.Ordenes) == 0 {
		return fmt.Errorf("pdf: requisición %d sin órdenes", resumen.RequisicionID)
	}
	orden := resumen.Ordenes[0]

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle("Orden "+orden.Folio, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentW := pageW - left - right

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr(institucion), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	titulo := "Orden de compra"
	if resumen.TipoOrden == "servicio" {
		titulo = "Orden de servicio"
	}
	pdf.CellFormat(contentW, 6, tr(titulo), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// ── Order info ────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW/2, 5, tr("Folio de orden: "+orden.Folio), "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 5, tr("Requisición: "+resumen.Folio), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, tr(resumen.Nombre), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Proveedor: %s  RFC: %s", orden.RazonSocial, orden.RFC)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	// ── Lines header ──────────────────────────────────────────────────────────
	col1 := contentW * 0.46 // product
	col2 := contentW * 0.14 // qty
	col3 := contentW * 0.20 // unit price
	col4 := contentW * 0.20 // amount

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(220, 220, 220)
	pdf.CellFormat(col1, 6, "Producto", "1", 0, "L", true, 0, "")
	pdf.CellFormat(col2, 6, "Cantidad", "1", 0, "C", true, 0, "")
	pdf.CellFormat(col3, 6, "P. unitario", "1", 0, "R", true, 0, "")
	pdf.CellFormat(col4, 6, "Importe", "1", 1, "R", true, 0, "")

	// ── Lines ─────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 9)
	for _, p := range orden.Partidas {
		nombre := p.Producto
		if p.Descripcion != nil && *p.Descripcion != "" {
			nombre += " - " + *p.Descripcion
		}
		if r := []rune(nombre); len(r) > 60 {
			nombre = string(r[:59]) + "…"
		}
		pdf.CellFormat(col1, 6, tr(nombre), "1", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, p.Cantidad.String(), "1", 0, "C", false, 0, "")
		precio := "s/p"
		if p.PrecioUnitario != nil {
			precio = "$" + p.PrecioUnitario.StringFixed(2)
		}
		pdf.CellFormat(col3, 6, precio, "1", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 6, "$"+p.Importe.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	// ── Totals ────────────────────────────────────────────────────────────────
	etiqueta := col1 + col2 + col3
	pdf.CellFormat(etiqueta, 6, "Subtotal:", "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "$"+orden.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	if orden.IncluyeIVA && orden.PorcentajeIVA != nil {
		pdf.CellFormat(etiqueta, 6, fmt.Sprintf("IVA (%s%%):", orden.PorcentajeIVA.String()), "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 6, "$"+orden.IVA.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(etiqueta, 7, "TOTAL:", "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 7, "$"+orden.Total.StringFixed(2), "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: write: %w", err)
	}
	return nil
}
