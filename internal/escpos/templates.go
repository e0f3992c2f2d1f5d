package escpos

import (
	"fmt"
	"image"
	"strconv"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"

	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

const (
	timestampLayout = "2006-01-02 15:04:05"

	defaultColumns   = 24
	defaultFeedLines = 3
	defaultTitle     = "WEIGHT TICKET"
	defaultFooter    = "Thank you!"

	barcodeWidth  = 320
	barcodeHeight = 80
)

// Profile holds the layout parameters of one paper stock.
type Profile struct {
	CodePage  CodePage
	Columns   int
	FeedLines int
	Title     string
	Footer    string
	Barcode   bool
}

// ProfileFrom resolves a configured media profile, filling defaults.
func ProfileFrom(media model.MediaProfile) (Profile, error) {
	cp, err := LookupCodePage(media.CodePage)
	if err != nil {
		return Profile{}, err
	}
	profile := Profile{
		CodePage:  cp,
		Columns:   media.Columns,
		FeedLines: media.FeedLines,
		Title:     media.Title,
		Footer:    media.Footer,
		Barcode:   media.Barcode,
	}
	if profile.Columns <= 0 {
		profile.Columns = defaultColumns
	}
	if profile.FeedLines <= 0 {
		profile.FeedLines = defaultFeedLines
	}
	if profile.Title == "" {
		profile.Title = defaultTitle
	}
	if profile.Footer == "" {
		profile.Footer = defaultFooter
	}
	return profile, nil
}

// FormatWeight renders w with two decimals, a dot separator and the
// unit suffix, independent of locale.
func FormatWeight(w float64, unit string) string {
	formatted := strconv.FormatFloat(w, 'f', 2, 64)
	if unit == "" {
		return formatted
	}
	return formatted + " " + unit
}

// RenderTicket renders the weighing receipt for a closed ticket.
func RenderTicket(record model.TicketRecord, profile Profile) []byte {
	b := NewBuilder(profile.CodePage)

	b.Align(AlignCenter).Style(StyleBold | StyleDoubleHeight).Line(profile.Title)
	b.Style(StyleNormal).Align(AlignLeft)
	b.Line(fmt.Sprintf("Ticket #: %d", record.TicketID))
	b.Line("Date: " + record.Timestamp.Format(timestampLayout))
	b.Line("Customer: " + record.CustomerName)
	b.Rule(profile.Columns)
	b.Line("Gross: " + FormatWeight(record.GrossWeight, record.Unit))
	b.Line("Tare:  " + FormatWeight(record.TareWeight, record.Unit))
	b.Line("Net:   " + FormatWeight(record.NetWeight, record.Unit))
	b.Rule(profile.Columns)
	b.Align(AlignCenter).Line(profile.Footer)
	b.Feed(profile.FeedLines)
	b.Cut(CutFull, 0)

	return b.Bytes()
}

// RenderLabel renders the customer card label. With profile.Barcode the
// card id is also printed as a Code 128 barcode.
func RenderLabel(record model.LabelRecord, profile Profile) ([]byte, error) {
	b := NewBuilder(profile.CodePage)

	b.Align(AlignCenter).Style(StyleBold | StyleDoubleHeight | StyleDoubleWidth).Line(record.Name)
	b.Style(StyleNormal).Align(AlignLeft)
	b.Line(fmt.Sprintf("ID: %d", record.CustomerID))
	b.Line("Card: " + string(record.CardID))

	if profile.Barcode && record.CardID != "" {
		matrix, err := oned.NewCode128Writer().Encode(
			string(record.CardID), gozxing.BarcodeFormat_CODE_128, barcodeWidth, barcodeHeight, nil)
		if err != nil {
			return nil, fmt.Errorf("encoding barcode for card %s: %w", record.CardID, err)
		}
		b.Align(AlignCenter).Raster(matrix).Align(AlignLeft)
	}

	b.Feed(profile.FeedLines)
	b.Cut(CutFeed, 0)
	return b.Bytes(), nil
}

// RenderRaster wraps a pre-rendered page image (see the html renderer)
// in reset, feed and cut.
func RenderRaster(page image.Image, width int, profile Profile, cut CutMode) []byte {
	if width > 0 {
		page = ResizeToWidth(page, width)
	}
	b := NewBuilder(profile.CodePage)
	b.Align(AlignCenter).Raster(page)
	b.Feed(profile.FeedLines)
	b.Cut(cut, 0)
	return b.Bytes()
}
