package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

const fontFamily = "DejaVu"

var ErrInvalidFont = errors.New("not a usable TrueType font")

// Renderer draws reports as A4 PDFs. With a TTF font the text is written as
// is; without one the core Helvetica font is used and Cyrillic is
// transliterated, since core fonts only cover cp1252.
type Renderer struct {
	font []byte
}

// NewRenderer loads the TTF font at fontPath. An empty path selects the core
// font.
func NewRenderer(fontPath string) (*Renderer, error) {
	if fontPath == "" {
		return &Renderer{}, nil
	}
	font, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("load report font: %w", err)
	}
	if err := checkFont(font); err != nil {
		return nil, fmt.Errorf("load report font %s: %w", fontPath, err)
	}
	return &Renderer{font: font}, nil
}

// checkFont registers font on a scratch document and selects it. fpdf does
// not report a TTF it cannot parse until the font is used.
func checkFont(font []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidFont, r)
		}
	}()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(fontFamily, "", font)
	pdf.SetFont(fontFamily, "", 12)
	if pdf.Err() {
		return fmt.Errorf("%w: %v", ErrInvalidFont, pdf.Error())
	}
	return nil
}

func (r *Renderer) setup(pdf *fpdf.Fpdf) (family string, text func(string) string) {
	if len(r.font) > 0 {
		pdf.AddUTF8FontFromBytes(fontFamily, "", r.font)
		return fontFamily, func(s string) string { return s }
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	return "Helvetica", func(s string) string { return tr(transliterate(s)) }
}

// Write renders rep to w.
func (r *Renderer) Write(w io.Writer, rep Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(rep.Title, true)
	pdf.SetCreator("astrobot", true)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 20)

	family, text := r.setup(pdf)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(family, "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont(family, "", 18)
	pdf.SetTextColor(40, 30, 90)
	pdf.MultiCell(0, 10, text(rep.Title), "", "C", false)
	if rep.Subject != "" {
		pdf.SetFont(family, "", 11)
		pdf.SetTextColor(90, 90, 90)
		pdf.MultiCell(0, 6, text(rep.Subject), "", "C", false)
	}
	pdf.Ln(6)

	for _, s := range rep.Sections {
		pdf.SetFont(family, "", 14)
		pdf.SetTextColor(60, 40, 120)
		pdf.MultiCell(0, 8, text(s.Heading), "", "L", false)
		pdf.Ln(1)
		pdf.SetFont(family, "", 12)
		pdf.SetTextColor(0, 0, 0)
		for _, p := range s.Body {
			pdf.MultiCell(0, 7, text(p), "", "L", false)
		}
		pdf.Ln(4)
	}
	return pdf.Output(w)
}

// WriteFile renders rep into dir under a random name and returns the path.
// An empty dir means the system temp directory.
func (r *Renderer) WriteFile(dir string, rep Report) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	var buf bytes.Buffer
	if err := r.Write(&buf, rep); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+".pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
}

// transliterate maps Russian letters to Latin and drops runes outside
// Latin-1, such as planet glyphs and emoji.
func transliterate(s string) string {
	var b strings.Builder
	for _, r := range s {
		lower := []rune(strings.ToLower(string(r)))[0]
		if lat, ok := cyrillic[lower]; ok {
			if lower != r && lat != "" {
				lat = strings.ToUpper(lat[:1]) + lat[1:]
			}
			b.WriteString(lat)
			continue
		}
		if r < 0x100 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
