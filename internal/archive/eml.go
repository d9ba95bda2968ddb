package archive

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"
)

// ParseEML parses a single RFC 5322 message. The plain-text body is
// preferred; HTML-only messages are tag-stripped as a fallback.
func ParseEML(r io.Reader) (*ParsedEmail, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}

	dec := new(mime.WordDecoder)
	decode := func(s string) string {
		decoded, err := dec.DecodeHeader(s)
		if err != nil {
			return s
		}
		return decoded
	}

	parsed := &ParsedEmail{
		MessageID:  strings.Trim(msg.Header.Get("Message-ID"), "<>"),
		Subject:    decode(msg.Header.Get("Subject")),
		Sender:     decode(msg.Header.Get("From")),
		Recipients: decode(msg.Header.Get("To")),
	}

	if date, err := msg.Header.Date(); err == nil {
		parsed.SentAt = &date
	}

	body, err := extractBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, fmt.Errorf("extract body: %w", err)
	}
	parsed.BodyText = strings.TrimSpace(body)

	return parsed, nil
}

// extractBody walks the MIME structure and returns the best text body:
// text/plain wins, stripped text/html is the fallback.
func extractBody(contentType, encoding string, body io.Reader) (string, error) {
	if contentType == "" {
		data, err := io.ReadAll(decodeTransfer(encoding, body))
		return string(data), err
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Broken Content-Type headers are common in the wild; treat the
		// body as plain text.
		data, readErr := io.ReadAll(decodeTransfer(encoding, body))
		return string(data), readErr
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		return extractMultipart(body, params["boundary"])
	case mediaType == "text/html":
		data, err := io.ReadAll(decodeTransfer(encoding, body))
		if err != nil {
			return "", err
		}
		return StripHTML(string(data)), nil
	default:
		data, err := io.ReadAll(decodeTransfer(encoding, body))
		return string(data), err
	}
}

func extractMultipart(body io.Reader, boundary string) (string, error) {
	if boundary == "" {
		data, err := io.ReadAll(body)
		return string(data), err
	}

	var plain, html string
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed trailing part should not discard what we
			// already extracted.
			break
		}

		partText, err := extractBody(
			part.Header.Get("Content-Type"),
			part.Header.Get("Content-Transfer-Encoding"),
			part,
		)
		part.Close()
		if err != nil {
			continue
		}

		partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		switch {
		case partType == "text/plain" && plain == "":
			plain = partText
		case partType == "text/html" && html == "":
			html = partText
		case strings.HasPrefix(partType, "multipart/") && plain == "":
			plain = partText
		}
	}

	if plain != "" {
		return plain, nil
	}
	return html, nil
}

// decodeTransfer wraps body with the transfer-encoding decoder.
func decodeTransfer(encoding string, body io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(body)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, body)
	default:
		return body
	}
}

var (
	htmlTagRe    = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>|<[^>]+>`)
	htmlSpaceRe  = regexp.MustCompile(`[ \t]+`)
	htmlBlankRe  = regexp.MustCompile(`\n{3,}`)
	htmlEntities = strings.NewReplacer(
		"&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">",
		"&quot;", `"`, "&#39;", "'",
	)
)

// StripHTML reduces an HTML body to readable plain text. Crude but
// sufficient for indexing; rendering fidelity is not a goal.
func StripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = htmlEntities.Replace(s)
	s = htmlSpaceRe.ReplaceAllString(s, " ")
	s = htmlBlankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
