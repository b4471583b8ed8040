package models

import "strings"

// TextSource describes how the text of an uploaded document was obtained.
type TextSource string

const (
	TextSourceNone      TextSource = "none"
	TextSourceNativePDF TextSource = "native_pdf"
	TextSourceVisionOCR TextSource = "vision_ocr"
	TextSourceDOCX      TextSource = "docx"
)

// PageTranscription is the outcome of transcribing one rendered page.
// A blank page has no error and empty text; a failed page carries Err.
type PageTranscription struct {
	Page int
	Text string
	Err  error
}

// Failed reports whether the page could not be transcribed.
func (p PageTranscription) Failed() bool {
	return p.Err != nil
}

// Transcript is the ordered set of page results produced by vision OCR.
type Transcript struct {
	PageCount int
	Pages     []PageTranscription
}

// Text joins the successful pages in order, each followed by a blank line.
func (t Transcript) Text() string {
	var builder strings.Builder
	for _, page := range t.Pages {
		if page.Failed() {
			continue
		}
		builder.WriteString(page.Text)
		builder.WriteString("\n\n")
	}
	return builder.String()
}

// FailedPages lists the 1-based numbers of pages whose transcription errored.
func (t Transcript) FailedPages() []int {
	var failed []int
	for _, page := range t.Pages {
		if page.Failed() {
			failed = append(failed, page.Page)
		}
	}
	return failed
}

// ExtractedText is the plain text recovered from an uploaded document.
type ExtractedText struct {
	Text      string
	Source    TextSource
	PageCount int
	Pages     []PageTranscription
}

// Empty reports whether no usable text was recovered.
func (e ExtractedText) Empty() bool {
	return strings.TrimSpace(e.Text) == ""
}

// FailedPages lists OCR pages that could not be transcribed.
func (e ExtractedText) FailedPages() []int {
	return Transcript{Pages: e.Pages}.FailedPages()
}
