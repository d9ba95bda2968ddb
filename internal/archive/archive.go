// Package archive extracts individual emails from uploaded mail archives.
// Three formats are supported: single .eml messages, JSON exports, and
// Outlook .pst files (extracted by shelling out to readpst).
package archive

import (
	"bytes"
	"path/filepath"
	"strings"
	"time"

	"mailvault/internal/model"
)

// ParsedEmail is one message extracted from an archive, before it becomes
// a model.Email row.
type ParsedEmail struct {
	MessageID  string
	Subject    string
	Sender     string
	Recipients string
	BodyText   string
	SentAt     *time.Time
}

// pstMagic is the fixed signature at offset 0 of PST/OST files ("!BDN").
var pstMagic = []byte{0x21, 0x42, 0x44, 0x4e}

// DetectFormat decides the archive format from the filename extension,
// falling back to content sniffing on the first bytes.
func DetectFormat(filename string, head []byte) (string, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pst", ".ost":
		return model.FormatPST, true
	case ".eml":
		return model.FormatEML, true
	case ".json":
		return model.FormatJSON, true
	}

	if bytes.HasPrefix(head, pstMagic) {
		return model.FormatPST, true
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("{")) || bytes.HasPrefix(trimmed, []byte("[")) {
		return model.FormatJSON, true
	}
	// RFC 5322 headers start with a header line like "Received:" or "From:".
	if bytes.Contains(head, []byte(": ")) && bytes.Contains(head, []byte("\n")) {
		return model.FormatEML, true
	}

	return "", false
}
