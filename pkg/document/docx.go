package document

import (
	"bytes"
	"fmt"

	"code.sajari.com/docconv/v2"
)

// DOCXTextReader extracts text from Office Open XML word documents.
type DOCXTextReader struct{}

// NewDOCXTextReader constructs a DOCX reader.
func NewDOCXTextReader() *DOCXTextReader {
	return &DOCXTextReader{}
}

// Text returns the document body text. Embedded images are ignored.
func (r *DOCXTextReader) Text(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty docx", ErrMalformed)
	}

	text, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		parseFailures.WithLabelValues("docx").Inc()
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return text, nil
}
