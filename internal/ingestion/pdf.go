package ingestion

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jonathan/linkedin-optimizer/internal/types"
)

// Character ranges of the extracted PDF text assigned to each field.
// The split is naive; users are expected to review and edit the result.
const (
	pdfAboutEnd      = 1000
	pdfExperienceEnd = 2000
	pdfSkillsEnd     = 2500
	previewLength    = 500
)

// ParsePDF extracts the plain text of a LinkedIn "Save to PDF" export and slices it into
// About, Experience and Skills.
func ParsePDF(r io.ReaderAt, size int64) (result *Result, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = &ImportError{Source: SourcePDF, Message: "failed to parse PDF", Cause: fmt.Errorf("%v", rec)}
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, &ImportError{Source: SourcePDF, Message: "failed to open PDF", Cause: err}
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, &ImportError{Source: SourcePDF, Message: "failed to extract text", Cause: err}
	}
	data, err := io.ReadAll(plain)
	if err != nil {
		return nil, &ImportError{Source: SourcePDF, Message: "failed to read extracted text", Cause: err}
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, &ImportError{Source: SourcePDF, Message: "no text found in PDF"}
	}

	return &Result{
		Source:     SourcePDF,
		Fields:     SliceText(text),
		Characters: len([]rune(text)),
		Preview:    types.Truncate(text, previewLength),
	}, nil
}

// ParsePDFBytes is ParsePDF over an in-memory upload.
func ParsePDFBytes(data []byte) (*Result, error) {
	return ParsePDF(bytes.NewReader(data), int64(len(data)))
}

// ParsePDFFile opens and parses a PDF on disk.
func ParsePDFFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ImportError{Source: SourcePDF, Message: "failed to open file", Cause: err}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, &ImportError{Source: SourcePDF, Message: "failed to stat file", Cause: err}
	}
	return ParsePDF(f, info.Size())
}

// SliceText assigns fixed rune ranges of text to About [0,1000), Experience [1000,2000)
// and Skills [2000,2500). Ranges past the end of the text are empty.
func SliceText(text string) map[string]string {
	runes := []rune(text)
	return map[string]string{
		types.FieldAbout:      runeRange(runes, 0, pdfAboutEnd),
		types.FieldExperience: runeRange(runes, pdfAboutEnd, pdfExperienceEnd),
		types.FieldSkills:     runeRange(runes, pdfExperienceEnd, pdfSkillsEnd),
	}
}

func runeRange(runes []rune, start, end int) string {
	if start >= len(runes) {
		return ""
	}
	return string(runes[start:min(end, len(runes))])
}
