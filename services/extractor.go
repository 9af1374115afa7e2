package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
)

const maxBodyLength = 5000

const (
	defaultSubject = "(No Subject)"
	defaultSender  = "(Unknown Sender)"
	defaultDate    = "(Unknown Date)"
)

// ExtractedEmail is a raw provider message normalized to the fields the
// classifier and the scan report need.
type ExtractedEmail struct {
	Subject string
	Sender  string
	Date    string
	Body    string
}

// FullText is the text fed to the classifier.
func (e ExtractedEmail) FullText() string {
	return fmt.Sprintf("Subject: %s\nFrom: %s\n\n%s", e.Subject, e.Sender, e.Body)
}

// ExtractMessage parses a raw RFC 822 message. Extraction is best effort and
// never fails: missing headers fall back to placeholders, undecodable bytes
// are dropped, and the body is capped at maxBodyLength characters.
func ExtractMessage(raw []byte) ExtractedEmail {
	extracted := ExtractedEmail{
		Subject: defaultSubject,
		Sender:  defaultSender,
		Date:    defaultDate,
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return extracted
	}

	if subject := decodeHeader(msg.Header.Get("Subject")); subject != "" {
		extracted.Subject = subject
	}
	if sender := decodeHeader(msg.Header.Get("From")); sender != "" {
		extracted.Sender = sender
	}
	if date := msg.Header.Get("Date"); date != "" {
		extracted.Date = date
	}

	body := extractBody(textproto.MIMEHeader(msg.Header), msg.Body)
	extracted.Body = truncateRunes(body, maxBodyLength)

	return extracted
}

// extractBody prefers the first text/plain part of a multipart message and
// falls back to the single-part payload.
func extractBody(header textproto.MIMEHeader, body io.Reader) string {
	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err == nil && strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "" {
		if part := findPlainTextPart(multipart.NewReader(body, params["boundary"])); part != "" {
			return part
		}
		return ""
	}

	return decodePayload(header.Get("Content-Transfer-Encoding"), body)
}

func findPlainTextPart(reader *multipart.Reader) string {
	for {
		part, err := reader.NextPart()
		if err != nil {
			return ""
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			continue
		}

		if mediaType == "text/plain" {
			return decodePayload(part.Header.Get("Content-Transfer-Encoding"), part)
		}

		// Recurse into nested multiparts (e.g. multipart/alternative).
		if strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "" {
			if nested := findPlainTextPart(multipart.NewReader(part, params["boundary"])); nested != "" {
				return nested
			}
		}
	}
}

// decodePayload applies the transfer encoding and drops invalid bytes rather
// than failing.
func decodePayload(encoding string, body io.Reader) string {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		body = base64.NewDecoder(base64.StdEncoding, newWhitespaceStripper(body))
	case "quoted-printable":
		body = quotedprintable.NewReader(body)
	}

	data, err := io.ReadAll(body)
	if err != nil && len(data) == 0 {
		return ""
	}

	return strings.ToValidUTF8(string(data), "")
}

// whitespaceStripper removes line breaks so the base64 decoder sees a
// contiguous stream.
type whitespaceStripper struct {
	r io.Reader
}

func newWhitespaceStripper(r io.Reader) io.Reader {
	return &whitespaceStripper{r: r}
}

func (w *whitespaceStripper) Read(p []byte) (int, error) {
	buf := make([]byte, len(p))
	for {
		n, err := w.r.Read(buf)
		kept := 0
		for _, b := range buf[:n] {
			if b == '\r' || b == '\n' || b == ' ' || b == '\t' {
				continue
			}
			p[kept] = b
			kept++
		}
		if kept > 0 || err != nil {
			return kept, err
		}
	}
}

func decodeHeader(value string) string {
	if value == "" {
		return ""
	}
	decoder := &mime.WordDecoder{}
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
