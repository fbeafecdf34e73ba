// Package ticket renders the PDF ticket of a confirmed reservation.
package ticket

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/iliyamo/event-booking/internal/model"
)

// serialSpace namespaces ticket serials so the same reservation always gets
// the same serial.
var serialSpace = uuid.MustParse("6f1d3c1e-4b7a-4d52-9a57-0e3f0c8d2b11")

// QRPayload is what scanners at the door read.
func QRPayload(reservationID, eventID uint64) string {
	return fmt.Sprintf("RESERVATION:%d:%d", reservationID, eventID)
}

// Serial is the human readable ticket number printed under the QR code.
func Serial(reservationID, eventID uint64) string {
	return uuid.NewSHA1(serialSpace, []byte(QRPayload(reservationID, eventID))).String()
}

// Render draws a one page A4 ticket.  d must carry both the event and the
// user summary.
func Render(d model.ReservationDetail) ([]byte, error) {
	if d.Event == nil || d.User == nil {
		return nil, errors.New("ticket: reservation detail is missing event or user")
	}
	qr, err := qrcode.Encode(QRPayload(d.ID, d.EventID), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("ticket: encode qr: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Ticket %d", d.ID), true)
	pdf.SetCreator("event-booking", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 14, "EVENT TICKET", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(d.Event.Title), "", "C", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	rows := [][2]string{
		{"Date", d.Event.Date.UTC().Format("Monday, 02 January 2006 15:04 MST")},
		{"Location", d.Event.Location},
		{"Attendee", d.User.FirstName + " " + d.User.LastName},
		{"Email", d.User.Email},
		{"Seats", fmt.Sprintf("%d", d.NumberOfSeats)},
		{"Reservation", fmt.Sprintf("#%d", d.ID)},
	}
	if d.ConfirmedAt != nil {
		rows = append(rows, [2]string{"Confirmed", d.ConfirmedAt.UTC().Format("2006-01-02 15:04 MST")})
	}
	for _, r := range rows {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(45, 8, r[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 8, tr(r[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qr))
	pageW, _ := pdf.GetPageSize()
	const qrSize = 60.0
	pdf.ImageOptions("qr", (pageW-qrSize)/2, pdf.GetY(), qrSize, qrSize, true, opts, 0, "")

	pdf.SetFont("Courier", "", 10)
	pdf.CellFormat(0, 6, Serial(d.ID, d.EventID), "", 1, "C", false, 0, "")
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 5, "Present this ticket at the entrance. The QR code is valid for one admission per seat listed above.", "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("ticket: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
