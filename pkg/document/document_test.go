package document

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Q1. Define photosynthesis.</w:t></w:r></w:p>
<w:p><w:r><w:t>Answer: Plants convert light into chemical energy.</w:t></w:r></w:p>
</w:body>
</w:document>`

func buildDOCX(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"word/document.xml":   documentXML,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDOCXTextReaderExtractsParagraphs(t *testing.T) {
	text, err := NewDOCXTextReader().Text(buildDOCX(t))
	require.NoError(t, err)
	require.Contains(t, text, "Q1. Define photosynthesis.")
	require.Contains(t, text, "Plants convert light into chemical energy.")
}

func TestDOCXTextReaderRejectsGarbage(t *testing.T) {
	_, err := NewDOCXTextReader().Text([]byte("not a zip archive"))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = NewDOCXTextReader().Text(nil)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestPDFTextReaderRejectsMalformedInput(t *testing.T) {
	reader := NewPDFTextReader()

	_, err := reader.PageTexts(nil)
	require.ErrorIs(t, err, ErrMalformed)

	_, err = reader.PageTexts([]byte("%PDF-1.4\nthis is not really a pdf"))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestRasterizerRejectsEmptyInput(t *testing.T) {
	_, err := NewRasterizer().Open(nil)
	require.ErrorIs(t, err, ErrMalformed)
}
