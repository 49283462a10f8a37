package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	fontFamily = "Helvetica"
	bodySize   = 10.0
	lineHeight = 5.0
	pageWidth  = 180.0
)

// PDF renders r by laying out its Markdown form on A4 pages.
func PDF(r Report) ([]byte, error) {
	source := []byte(Markdown(r))
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(source))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(r.Title, true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont(fontFamily, "", bodySize)

	w := &pdfWriter{
		pdf:    pdf,
		source: source,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
	}
	if err := ast.Walk(doc, w.walk); err != nil {
		return nil, fmt.Errorf("failed to lay out report: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}
	log.Debug().Int("pdf_size", buf.Len()).Msg("report rendered")
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	source []byte
	tr     func(string) string

	bold     bool
	italic   bool
	ordered  bool
	itemNum  int
	fontSize float64
}

func (w *pdfWriter) setFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	size := w.fontSize
	if size == 0 {
		size = bodySize
	}
	w.pdf.SetFont(fontFamily, style, size)
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			w.pdf.Ln(4)
			w.bold = true
			w.fontSize = map[int]float64{1: 16, 2: 12}[node.Level]
			if w.fontSize == 0 {
				w.fontSize = 11
			}
		} else {
			w.pdf.Ln(lineHeight + 2)
			w.bold = false
			w.fontSize = 0
		}
		w.setFont()
	case *ast.Paragraph:
		if !entering {
			w.pdf.Ln(lineHeight + 2)
		}
	case *ast.Text:
		if entering {
			w.pdf.Write(lineHeight, w.tr(string(node.Segment.Value(w.source))))
			if node.SoftLineBreak() || node.HardLineBreak() {
				w.pdf.Write(lineHeight, " ")
			}
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.setFont()
	case *ast.List:
		if entering {
			w.ordered = node.IsOrdered()
			w.itemNum = node.Start
		} else {
			w.pdf.Ln(2)
		}
	case *ast.ListItem:
		if entering {
			w.pdf.SetX(20)
			marker := "- "
			if w.ordered {
				marker = fmt.Sprintf("%d. ", w.itemNum)
				w.itemNum++
			}
			w.pdf.Write(lineHeight, marker)
		} else {
			w.pdf.Ln(lineHeight)
		}
	case *ast.TextBlock:
		// list item bodies; line breaks are handled by the item
	case *extast.Table:
		if entering {
			w.table(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (w *pdfWriter) table(t *extast.Table) {
	var rows [][]string
	for child := t.FirstChild(); child != nil; child = child.NextSibling() {
		var row []string
		for c := child.FirstChild(); c != nil; c = c.NextSibling() {
			if _, ok := c.(*extast.TableCell); ok {
				row = append(row, w.plain(c))
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	widths := make([]float64, len(rows[0]))
	for i := range widths {
		widths[i] = pageWidth / float64(len(widths))
	}
	if len(widths) == 4 {
		widths = []float64{72, 36, 36, 36}
	}

	w.pdf.Ln(2)
	for i, row := range rows {
		fill := false
		switch {
		case i == 0:
			w.pdf.SetFont(fontFamily, "B", bodySize)
			w.pdf.SetFillColor(211, 175, 55)
			fill = true
		case i == len(rows)-1:
			w.pdf.SetFont(fontFamily, "B", bodySize)
			w.pdf.SetFillColor(240, 230, 140)
			fill = true
		default:
			w.pdf.SetFont(fontFamily, "", bodySize)
		}
		for j, cell := range row {
			if j >= len(widths) {
				break
			}
			w.pdf.CellFormat(widths[j], 8, w.tr(cell), "1", 0, "C", fill, 0, "")
		}
		w.pdf.Ln(-1)
	}
	w.pdf.SetFillColor(255, 255, 255)
	w.setFont()
	w.pdf.Ln(4)
}

// plain concatenates the text below n.
func (w *pdfWriter) plain(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			b.Write(t.Segment.Value(w.source))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
