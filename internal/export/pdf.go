/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"peplanner/internal/snapshot"
)

// DefaultFooter is printed at the bottom of every PDF page when Options.Footer is empty.
const DefaultFooter = "Created with PE Planner"

const (
	pdfMargin     = 40.0
	pdfFooterGap  = 30.0
	pdfLineHeight = 14.0
	pdfImageName  = "layout"
)

var footerColor = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

// WritePDF renders doc into an A4 portrait PDF: the game name as title, the rasterized
// layout at full content width, the metadata sections, and a footer on every page.
// Units are points.
func WritePDF(ctx context.Context, w io.Writer, doc snapshot.Document, opt Options) error {
	img, err := Rasterize(doc, opt)
	if err != nil {
		return fmt.Errorf("rasterize: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		SizeStr:        "A4",
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	footer := opt.Footer
	if footer == "" {
		footer = DefaultFooter
	}
	title := strings.TrimSpace(doc.GameName)
	if title == "" {
		title = "Untitled game"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("PE Planner", false)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin+pdfFooterGap)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin - 10)
		pdf.SetFont("Helvetica", "I", 9)
		setTextColor(pdf, footerColor)
		pdf.CellFormat(0, 10, tr(footer), "", 0, "C", false, 0, "")
		setTextColor(pdf, inkColor)
	})
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	contentW := pageW - 2*pdfMargin

	pdf.SetFont("Helvetica", "B", 20)
	setTextColor(pdf, inkColor)
	pdf.MultiCell(contentW, 24, tr(title), "", "L", false)
	pdf.Ln(8)

	info := pdf.RegisterImageOptionsReader(pdfImageName, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
	if info != nil && info.Width() > 0 {
		y := pdf.GetY()
		imgW, imgH := fitImage(info.Width(), info.Height(), contentW, pageH-y-pdfMargin-pdfFooterGap)
		x := pdfMargin + (contentW-imgW)/2
		setDrawColor(pdf, lineColor)
		pdf.SetLineWidth(0.5)
		pdf.ImageOptions(pdfImageName, x, y, imgW, imgH, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.Rect(x, y, imgW, imgH, "D")
		pdf.SetY(y + imgH + 16)
	}

	for _, sec := range []struct{ head, body string }{
		{"Objective", doc.Objective},
		{"Equipment", doc.Equipment},
		{"Modifications", doc.Modifications},
		{"Notes", doc.Notes},
	} {
		body := strings.TrimSpace(sec.body)
		if body == "" {
			continue
		}
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(contentW, 18, tr(sec.head), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(contentW, pdfLineHeight, tr(body), "", "L", false)
		pdf.Ln(8)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// fitImage scales a w x h image to the content width, shrinking it further when it would
// run past maxH. The aspect ratio is kept.
func fitImage(w, h, maxW, maxH float64) (float64, float64) {
	outW, outH := maxW, maxW*h/w
	if maxH > 0 && outH > maxH {
		outW, outH = maxH*w/h, maxH
	}
	return outW, outH
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setTextColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}
