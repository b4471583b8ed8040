package document

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrMalformed indicates the parser could not make sense of the document bytes.
	ErrMalformed = errors.New("malformed document")
	// ErrNoPages indicates the document parsed but contains no pages.
	ErrNoPages = errors.New("document has no pages")
)

var parseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gema",
	Subsystem: "document",
	Name:      "parse_failures_total",
	Help:      "Number of documents the native parsers rejected",
}, []string{"format"})

// PDFTextReader extracts the embedded text layer of PDF files.
type PDFTextReader struct{}

// NewPDFTextReader constructs a text layer reader.
func NewPDFTextReader() *PDFTextReader {
	return &PDFTextReader{}
}

// PageTexts returns the plain text of each page in order. Pages without a content
// stream yield an empty string. Parser panics on hostile input are converted into ErrMalformed.
func (r *PDFTextReader) PageTexts(data []byte) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			parseFailures.WithLabelValues("pdf").Inc()
			pages = nil
			err = fmt.Errorf("%w: pdf parser panic: %v", ErrMalformed, rec)
		}
	}()

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty pdf", ErrMalformed)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		parseFailures.WithLabelValues("pdf").Inc()
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	total := reader.NumPage()
	if total == 0 {
		return nil, ErrNoPages
	}

	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			parseFailures.WithLabelValues("pdf").Inc()
			return nil, fmt.Errorf("%w: page %d: %v", ErrMalformed, i, err)
		}
		pages = append(pages, text)
	}

	return pages, nil
}
