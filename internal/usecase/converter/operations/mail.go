package operations

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	reportFont     = "Go"
	reportMargin   = 54.0
	reportLineHt   = 14.0
	reportBodySize = 10.0
	emptyBodyText  = "Email content is empty."
	unknownDate    = "Unknown"
)

// MailReport turns an Outlook MSG into a flowed Letter-sized report.
type MailReport struct{}

func NewMailReport() *MailReport {
	return &MailReport{}
}

func (m *MailReport) Name() string {
	return "mail-report"
}

func (m *MailReport) Convert(ctx context.Context, input, outDir string) (string, error) {
	msg, err := ParseMSGFile(input)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	out := OutputPath(input, outDir)
	if err := WriteReport(msg, out); err != nil {
		os.Remove(out)
		return "", err
	}
	return out, nil
}

// ReportLines is the field sequence of a report, as label/value pairs. An empty
// label marks a heading.
func ReportLines(msg *Message) [][2]string {
	lines := [][2]string{
		{"From", msg.From()},
		{"To", msg.To},
	}
	if strings.TrimSpace(msg.Cc) != "" {
		lines = append(lines, [2]string{"Cc", msg.Cc})
	}
	lines = append(lines, [2]string{"", msg.Subject})

	date := unknownDate
	if !msg.Date.IsZero() {
		date = msg.Date.Format(time.RFC1123Z)
	}
	lines = append(lines, [2]string{"Date", date})

	body := msg.Body
	if strings.TrimSpace(body) == "" {
		body = emptyBodyText
	}
	lines = append(lines, [2]string{"Body", body})

	if len(msg.Attachments) > 0 {
		lines = append(lines, [2]string{"", "Attachments:"})
		for _, a := range msg.Attachments {
			lines = append(lines, [2]string{"-", a})
		}
	}
	return lines
}

func WriteReport(msg *Message, path string) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.AddUTF8FontFromBytes(reportFont, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(reportFont, "B", gobold.TTF)
	pdf.SetMargins(reportMargin, reportMargin, reportMargin)
	pdf.SetAutoPageBreak(true, reportMargin)
	pdf.AddPage()

	width, _ := pdf.GetPageSize()
	textWidth := width - 2*reportMargin

	for _, line := range ReportLines(msg) {
		label, value := line[0], line[1]
		switch label {
		case "":
			pdf.Ln(reportLineHt / 2)
			pdf.SetFont(reportFont, "B", 14)
			pdf.MultiCell(textWidth, 18, value, "", "L", false)
			pdf.Ln(reportLineHt / 2)
		case "Body":
			pdf.Ln(reportLineHt / 2)
			pdf.SetFont(reportFont, "", reportBodySize)
			pdf.MultiCell(textWidth, reportLineHt, value, "", "L", false)
		case "-":
			pdf.SetFont(reportFont, "", reportBodySize)
			pdf.MultiCell(textWidth, reportLineHt, "- "+value, "", "L", false)
		default:
			pdf.SetFont(reportFont, "B", reportBodySize)
			labelWidth := pdf.GetStringWidth(label+": ") + 2
			pdf.CellFormat(labelWidth, reportLineHt, label+":", "", 0, "L", false, 0, "")
			pdf.SetFont(reportFont, "", reportBodySize)
			pdf.MultiCell(textWidth-labelWidth, reportLineHt, value, "", "L", false)
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write mail report: %w", err)
	}
	return nil
}
