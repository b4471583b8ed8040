package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/models"
	"github.com/noah-isme/gema-grader-api/pkg/ai"
	"github.com/noah-isme/gema-grader-api/pkg/document"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// pdfHeader makes stub payloads sniff as application/pdf.
var pdfHeader = []byte("%PDF-1.7\n")

// zipHeader makes stub payloads sniff as a zip container.
var zipHeader = []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00")

type stubReply struct {
	content string
	err     error
}

type stubClient struct {
	replies  []stubReply
	requests []ai.CompletionRequest
}

func (s *stubClient) Complete(_ context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error) {
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return ai.CompletionResponse{}, errors.New("no stub reply configured")
	}
	idx := len(s.requests) - 1
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	reply := s.replies[idx]
	if reply.err != nil {
		return ai.CompletionResponse{}, reply.err
	}
	return ai.CompletionResponse{Content: reply.content}, nil
}

type stubPDFReader struct {
	pages     []string
	err       error
	calls     int
	lastInput []byte
}

func (s *stubPDFReader) PageTexts(data []byte) ([]string, error) {
	s.calls++
	s.lastInput = data
	return s.pages, s.err
}

type stubDOCXReader struct {
	text string
	err  error
}

func (s *stubDOCXReader) Text(_ []byte) (string, error) {
	return s.text, s.err
}

type stubVision struct {
	transcript models.Transcript
	err        error
	calls      int
	lastInput  []byte
}

func (s *stubVision) Transcribe(_ context.Context, pdf []byte) (models.Transcript, error) {
	s.calls++
	s.lastInput = pdf
	return s.transcript, s.err
}

type stubPageSet struct {
	pages      int
	failRender map[int]bool
	rendered   []int
	scales     []float64
	closed     bool
}

func (s *stubPageSet) NumPages() int { return s.pages }

func (s *stubPageSet) RenderPNG(index int, scale float64) ([]byte, error) {
	s.rendered = append(s.rendered, index)
	s.scales = append(s.scales, scale)
	if s.failRender[index] {
		return nil, fmt.Errorf("render page %d: corrupt stream", index+1)
	}
	return []byte(fmt.Sprintf("png-%d", index+1)), nil
}

func (s *stubPageSet) Close() error {
	s.closed = true
	return nil
}

type stubRasterizer struct {
	set *stubPageSet
	err error
}

func (s *stubRasterizer) Open(_ []byte) (document.PageSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.set, nil
}
