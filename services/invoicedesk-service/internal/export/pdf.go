package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/invoice"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
)

// InvoicePDF renders a stored invoice as a printable A4 document.
func InvoicePDF(inv invoice.Data, client model.Client) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(95, 6, fmt.Sprintf("Invoice Number: %s", inv.InvoiceNumber))
	pdf.Cell(95, 6, fmt.Sprintf("Issue Date: %s", inv.IssueDate.Format("January 2, 2006")))
	pdf.Ln(6)
	pdf.Cell(95, 6, fmt.Sprintf("Status: %s", inv.Status))
	pdf.Cell(95, 6, fmt.Sprintf("Due Date: %s", inv.DueDate.Format("January 2, 2006")))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Bill To:")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 5, client.Name)
	pdf.Ln(5)
	if client.BillingAddress != "" {
		pdf.Cell(0, 5, client.BillingAddress)
		pdf.Ln(5)
	}
	if client.ContactEmail != "" {
		pdf.Cell(0, 5, client.ContactEmail)
		pdf.Ln(5)
	}
	if client.TaxID != "" {
		pdf.Cell(0, 5, fmt.Sprintf("Tax ID: %s", client.TaxID))
		pdf.Ln(5)
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(100, 8, "Description", "", 0, "L", true, 0, "")
	pdf.CellFormat(35, 8, "Date", "", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Type", "", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Amount", "", 0, "R", true, 0, "")
	pdf.Ln(9)

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 10)
	for _, item := range inv.Items {
		pdf.CellFormat(100, 6, item.Description, "", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, item.Date.Format("2006-01-02"), "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, string(item.Type), "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("$%.2f", item.Amount), "", 0, "R", false, 0, "")
		pdf.Ln(6)
	}

	pdf.Ln(10)
	pdf.SetDrawColor(200, 200, 200)
	pdf.Rect(110, pdf.GetY(), 90, 30, "D")

	pdf.SetFont("Arial", "", 10)
	pdf.SetX(115)
	pdf.Cell(40, 8, "Subtotal:")
	pdf.CellFormat(40, 8, fmt.Sprintf("$%.2f", inv.Subtotal), "", 0, "R", false, 0, "")
	pdf.Ln(8)
	pdf.SetX(115)
	pdf.Cell(40, 8, "Tax (10%):")
	pdf.CellFormat(40, 8, fmt.Sprintf("$%.2f", inv.Tax), "", 0, "R", false, 0, "")
	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 12)
	pdf.SetX(115)
	pdf.Cell(40, 8, "Total:")
	pdf.CellFormat(40, 8, fmt.Sprintf("$%.2f", inv.Total), "", 0, "R", false, 0, "")
	pdf.Ln(12)

	if client.PaymentTerms != "" {
		pdf.SetFont("Arial", "I", 9)
		pdf.Cell(0, 5, fmt.Sprintf("Payment terms: %s", client.PaymentTerms))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
