package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/compozy/specmatch/engine/core"
	"github.com/compozy/specmatch/engine/speclib"
	"github.com/compozy/specmatch/pkg/logger"
)

const (
	contentTypePDF   = "application/pdf"
	contentTypeOctet = "application/octet-stream"
)

var pdfExtractor = extractPDF

// Extract detects the content type of file and returns its text. Files that
// yield no usable text fail with speclib.ErrMalformedDocument.
func Extract(ctx context.Context, file File) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(file.Name)
	if name == "" {
		return nil, speclib.InvalidInput("ingest", "file name is required")
	}
	if len(file.Data) == 0 {
		return nil, speclib.MalformedDocument(name, "file is empty")
	}
	contentType := detectContentType(file)
	var (
		text string
		err  error
	)
	switch {
	case isPDF(contentType):
		text, err = pdfExtractor(ctx, file.Data)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			return nil, speclib.MalformedDocument(name, err.Error())
		}
	case isText(contentType):
		text, err = decodeText(file.Data, contentType)
		if err != nil {
			return nil, speclib.MalformedDocument(name, err.Error())
		}
	default:
		return nil, speclib.MalformedDocument(name, fmt.Sprintf("unsupported content type %s", contentType))
	}
	text = normalizeText(text)
	if strings.TrimSpace(text) == "" {
		return nil, speclib.MalformedDocument(name, "no extractable text")
	}
	logger.FromContext(ctx).Debug(
		"Document text extracted",
		"filename", name,
		"content_type", contentType,
		"bytes", len(file.Data),
		"runes", utf8.RuneCountInString(text),
	)
	return &Document{
		Filename:    name,
		ContentType: contentType,
		ContentHash: core.SHA256Hex(file.Data),
		Size:        int64(len(file.Data)),
		Text:        text,
	}, nil
}

// detectContentType prefers sniffing over the declared type, which browsers
// often report as octet-stream.
func detectContentType(file File) string {
	detected := mimetype.Detect(file.Data)
	if detected != nil && detected.String() != contentTypeOctet {
		if detected.Is(contentTypePDF) {
			return contentTypePDF
		}
		if strings.HasPrefix(detected.String(), "text/") {
			return detected.String()
		}
	}
	declared := strings.TrimSpace(file.ContentType)
	if declared != "" && !strings.EqualFold(declared, contentTypeOctet) {
		return declared
	}
	if detected != nil {
		return detected.String()
	}
	return http.DetectContentType(file.Data)
}

func isPDF(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), contentTypePDF)
}

func isText(contentType string) bool {
	lowered := strings.ToLower(contentType)
	return strings.HasPrefix(lowered, "text/") ||
		strings.HasPrefix(lowered, "application/json") ||
		strings.HasPrefix(lowered, "application/xml")
}

func decodeText(data []byte, contentType string) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data), nil
	}
	enc, name, _ := charset.DetermineEncoding(data, contentType)
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("transcode from %s: %w", name, err)
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("transcoded result invalid utf-8")
	}
	return string(decoded), nil
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\x00", "")
}
