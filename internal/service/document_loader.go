package service

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"strings"
)

// LoadDocument reads an uploaded file into memory, enforcing maxBytes.
func LoadDocument(file *multipart.FileHeader, maxBytes int64) (Document, error) {
	if file == nil || strings.TrimSpace(file.Filename) == "" {
		return Document{}, errors.New("file is required")
	}
	if maxBytes > 0 && file.Size > maxBytes {
		return Document{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return Document{}, err
	}
	defer handle.Close()

	var reader io.Reader = handle
	if maxBytes > 0 {
		reader = io.LimitReader(handle, maxBytes+1)
	}

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, reader); err != nil {
		return Document{}, err
	}
	if maxBytes > 0 && int64(buf.Len()) > maxBytes {
		return Document{}, ErrUploadTooLarge
	}

	return Document{FileName: file.Filename, Data: buf.Bytes()}, nil
}
