// Package confirmation renders booking confirmations as printable PDFs.
package confirmation

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/goregular"

	"travel-booking/internal/models"
)

const fontName = "goregular"

type PDFGenerator struct {
	fontData []byte
}

func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{fontData: goregular.TTF}
}

// Generate lays out one A4 page with the booking details and, when given,
// the confirmation QR code.
func (g *PDFGenerator) Generate(b *models.Booking, qrCode []byte) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFontData(fontName, g.fontData); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	if err := pdf.SetFont(fontName, "", 20); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}

	pdf.SetXY(40, 40)
	pdf.Cell(nil, "Booking Confirmation")

	if err := pdf.SetFont(fontName, "", 12); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetXY(40, 90)
	addBookingInfo(pdf, b)

	if len(qrCode) > 0 {
		if err := addQRCode(pdf, qrCode, pdf.GetY()+20); err != nil {
			return nil, err
		}
	}

	pdf.SetXY(40, 780)
	pdf.Cell(nil, "Please bring this confirmation on the day of your tour.")

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func addBookingInfo(pdf *gopdf.GoPdf, b *models.Booking) {
	info := []struct {
		Label string
		Value string
	}{
		{"Booking", fmt.Sprintf("#%d", b.ID)},
		{"Tour", fmt.Sprintf("#%d", b.TourID)},
		{"Name", b.Name},
		{"Email", b.Email},
		{"Phone", b.Phone},
		{"Destination", b.Location},
		{"Guests", fmt.Sprintf("%d", b.Guests)},
		{"Arrival", b.Arrivals.Format("2 January 2006")},
		{"Departure", b.Leaving.Format("2 January 2006")},
		{"Booked on", b.CreatedAt.Format("2006-01-02 15:04")},
	}
	for _, item := range info {
		pdf.SetX(40)
		pdf.Cell(nil, item.Label+": "+item.Value)
		pdf.Br(20)
	}
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte, y float64) error {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		return fmt.Errorf("failed to decode QR code: %w", err)
	}
	if err := pdf.ImageFrom(img, 40, y, &gopdf.Rect{W: 150, H: 150}); err != nil {
		return fmt.Errorf("failed to draw QR code: %w", err)
	}
	pdf.SetY(y + 150)
	return nil
}
