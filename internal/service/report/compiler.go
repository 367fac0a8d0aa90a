// Package report compiles the detection log into a paginated PDF document.
//
// Layout uses a running vertical cursor in millimetres on an A4 page: each
// text field advances it by a fixed step, each embedded image by a larger one,
// and once per record the cursor is compared against the page threshold. A
// record is never split across pages.
package report

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"potholewatch/internal/logger"
	"potholewatch/internal/model"

	"github.com/go-pdf/fpdf"
)

const (
	title        = "Pothole Detection Report"
	marginX      = 10.0
	titleY       = 15.0
	startY       = 30.0
	resetY       = 20.0
	pageBreakY   = 250.0
	fieldStep    = 6.0
	imageStep    = 130.0
	fallbackStep = 10.0
	imageWidth   = 160.0
	imageHeight  = 120.0
)

var (
	// ErrNoFindings is returned together with a "no potholes" document when
	// the log holds no record with a finding.
	ErrNoFindings = errors.New("no pothole data to report")
	// ErrEmptyDocument is returned when the compiled artifact has zero size.
	ErrEmptyDocument = errors.New("generated PDF is empty")
)

// Section describes one numbered entry of the compiled document.
type Section struct {
	Number        int    `json:"number"`
	Page          int    `json:"page"`
	Timestamp     string `json:"timestamp"`
	PotholeCount  int    `json:"pothole_count"`
	Location      string `json:"location"`
	ImageEmbedded bool   `json:"image_embedded"`
}

// Document is a compiled report.
type Document struct {
	Data     []byte
	Pages    int
	Sections []Section
	// Location is the location of the most recent record with a finding.
	Location string
}

// Size returns the byte size of the compiled PDF.
func (d *Document) Size() int {
	return len(d.Data)
}

// Compiler renders detection logs as PDF reports.
type Compiler struct {
	logger *logger.Logger
}

// NewCompiler creates a report compiler.
func NewCompiler(logger *logger.Logger) *Compiler {
	return &Compiler{logger: logger}
}

// Compile renders every record with a finding, in log order, as a numbered
// section. An image that cannot be embedded is replaced by a placeholder.
func (c *Compiler) Compile(records []model.DetectionRecord) (*Document, error) {
	findings := make([]model.DetectionRecord, 0, len(records))
	for _, rec := range records {
		if rec.HasFinding() {
			findings = append(findings, rec)
		}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("potholewatch", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 16)
	pdf.Text(marginX, titleY, title)

	y := startY
	if len(findings) == 0 {
		pdf.Text(marginX, y, "No potholes detected")
		doc, err := c.output(pdf, nil, model.LocationUnknown)
		if err != nil {
			return nil, err
		}
		return doc, ErrNoFindings
	}

	pdf.SetFontSize(12)

	sections := make([]Section, 0, len(findings))
	page := 1
	pendingBreak := false

	for i, rec := range findings {
		if pendingBreak {
			pdf.AddPage()
			page++
			y = resetY
			pendingBreak = false
		}

		section := Section{
			Number:       i + 1,
			Page:         page,
			Timestamp:    rec.Timestamp,
			PotholeCount: rec.PotholeCount,
			Location:     rec.Location,
		}

		pdf.Text(marginX, y, fmt.Sprintf("Detection #%d", section.Number))
		y += fieldStep
		pdf.Text(marginX, y, tr("Timestamp: "+rec.Timestamp))
		y += fieldStep
		pdf.Text(marginX, y, fmt.Sprintf("Potholes Detected: %d", rec.PotholeCount))
		y += fieldStep
		pdf.Text(marginX, y, tr("Location: "+rec.Location))
		y += fieldStep

		if c.embedImage(pdf, fmt.Sprintf("detection-%d", section.Number), rec.Image, y) {
			section.ImageEmbedded = true
			y += imageStep
		} else {
			pdf.Text(marginX, y, "Image unavailable")
			y += fallbackStep
		}

		sections = append(sections, section)

		if y > pageBreakY {
			pendingBreak = true
		}
	}

	location := findings[len(findings)-1].Location
	if location == "" {
		location = model.LocationUnknown
	}

	doc, err := c.output(pdf, sections, location)
	if err != nil {
		return nil, err
	}
	c.logger.Info("📄 Compiled report: %d section(s) on %d page(s), %d bytes", len(sections), doc.Pages, doc.Size())
	return doc, nil
}

func (c *Compiler) output(pdf *fpdf.Fpdf, sections []Section, location string) (*Document, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to compile report: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyDocument
	}
	return &Document{
		Data:     buf.Bytes(),
		Pages:    pdf.PageCount(),
		Sections: sections,
		Location: location,
	}, nil
}

// embedImage places the record image at the cursor. Any failure is cleared
// from the document so the remaining records still compile.
func (c *Compiler) embedImage(pdf *fpdf.Fpdf, name, image string, y float64) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Error adding image %s: %v", name, r)
			pdf.ClearError()
			ok = false
		}
	}()

	data, imageType, err := decodeImage(image)
	if err != nil {
		c.logger.Error("Error adding image %s: %v", name, err)
		return false
	}

	options := fpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader(name, options, bytes.NewReader(data))
	if pdf.Err() {
		c.logger.Error("Error adding image %s: %v", name, pdf.Error())
		pdf.ClearError()
		return false
	}

	pdf.ImageOptions(name, marginX, y, imageWidth, imageHeight, false, options, 0, "")
	if pdf.Err() {
		c.logger.Error("Error placing image %s: %v", name, pdf.Error())
		pdf.ClearError()
		return false
	}
	return true
}

// decodeImage extracts the bytes and fpdf image type from a data URI or a
// bare base64 JPEG payload.
func decodeImage(image string) ([]byte, string, error) {
	imageType := "JPG"
	payload := image

	if strings.HasPrefix(image, "data:") {
		header, body, found := strings.Cut(image, ",")
		if !found {
			return nil, "", errors.New("malformed data URI")
		}
		if !strings.HasSuffix(header, ";base64") {
			return nil, "", errors.New("data URI is not base64 encoded")
		}

		mime := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		switch mime {
		case "image/jpeg", "image/jpg":
			imageType = "JPG"
		case "image/png":
			imageType = "PNG"
		case "image/gif":
			imageType = "GIF"
		default:
			return nil, "", fmt.Errorf("unsupported image type %q", mime)
		}
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 image: %w", err)
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty image")
	}
	return data, imageType, nil
}
