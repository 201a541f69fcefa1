// Package dataurl encodes uploaded files into the data URI strings the insights
// flow accepts, and enforces the upload restrictions of the insights form.
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MIMECSV  = "text/csv"
	MIMEXLS  = "application/vnd.ms-excel"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// MaxUploadBytes is the largest file the insights upload accepts.
	MaxUploadBytes = 5_000_000
)

var (
	ErrMalformed       = errors.New("malformed data URI")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrEmpty           = errors.New("file is empty")
)

// Accepted lists the media types the insights upload takes.
var Accepted = []string{MIMECSV, MIMEXLSX, MIMEXLS}

// DataURL is a parsed data:<mime>;base64,<payload> string.
type DataURL struct {
	MIMEType string
	Data     []byte
}

// Encode returns data as a base64 data URI with the given media type.
func Encode(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// String re-encodes d.
func (d *DataURL) String() string { return Encode(d.MIMEType, d.Data) }

// Parse decodes a base64 data URI. Only the base64 form is supported.
func Parse(s string) (*DataURL, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: missing data: prefix", ErrMalformed)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing comma", ErrMalformed)
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, fmt.Errorf("%w: only base64 encoding is supported", ErrMalformed)
	}
	if mimeType == "" {
		return nil, fmt.Errorf("%w: missing media type", ErrMalformed)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &DataURL{MIMEType: mimeType, Data: data}, nil
}

// IsAccepted reports whether mimeType is on the upload allow-list. Parameters
// such as charset are ignored.
func IsAccepted(mimeType string) bool {
	base := normalize(mimeType)
	for _, a := range Accepted {
		if base == a {
			return true
		}
	}
	return false
}

// DetectMIME returns the media type of an upload. The declared type wins unless
// it is missing or generic, in which case the content is sniffed.
func DetectMIME(declared string, data []byte) string {
	base := normalize(declared)
	if base != "" && base != "application/octet-stream" {
		return base
	}
	detected := mimetype.Detect(data)
	return normalize(detected.String())
}

// EncodeUpload validates an uploaded file against the size limit and the
// allow-list and returns its data URI.
func EncodeUpload(declared string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if len(data) > MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), MaxUploadBytes)
	}
	mimeType := DetectMIME(declared, data)
	if !IsAccepted(mimeType) {
		return "", fmt.Errorf("%w: %s (accepted: .csv, .xls, .xlsx)", ErrUnsupportedType, mimeType)
	}
	return Encode(mimeType, data), nil
}

func normalize(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return ""
	}
	if base, _, err := mime.ParseMediaType(mimeType); err == nil {
		return strings.ToLower(base)
	}
	return strings.ToLower(mimeType)
}
