// Package mailparse decodes raw RFC 5322 messages into the normalized
// form the pipeline dispatches downstream.
package mailparse

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/chiphi-ai/inbound/internal/charset"
	"github.com/chiphi-ai/inbound/internal/ids"
)

// Attachment describes one attachment without carrying its content; the
// raw object in blob storage remains the source of truth.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Message is the normalized form of one inbound email. Text and HTML
// are nil when the message has no part of that type.
type Message struct {
	To          string
	From        string
	Subject     string
	Text        *string
	HTML        *string
	MessageID   string
	Attachments []Attachment
}

// Parse decodes raw message bytes. Malformed-but-parseable MIME is
// tolerated part by part; only genuinely unreadable input errors out.
func Parse(data []byte) (*Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}

	parsed := &Message{
		To:          firstAddress(msg.Header.Get("To")),
		From:        firstAddress(msg.Header.Get("From")),
		Subject:     decodeHeader(msg.Header.Get("Subject")),
		MessageID:   strings.TrimSpace(msg.Header.Get("Message-Id")),
		Attachments: []Attachment{},
	}
	if parsed.MessageID == "" {
		parsed.MessageID = ids.NewMessageID()
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	mediaType, params := parseContentType(msg.Header.Get("Content-Type"))
	collectPart(parsed, bodyPart{
		mediaType:        mediaType,
		params:           params,
		disposition:      msg.Header.Get("Content-Disposition"),
		transferEncoding: msg.Header.Get("Content-Transfer-Encoding"),
		content:          body,
	})

	return parsed, nil
}

// bodyPart is one MIME part before decoding.
type bodyPart struct {
	mediaType        string
	params           map[string]string
	disposition      string
	transferEncoding string
	content          []byte
}

// collectPart walks a part tree, filling in the first text/plain part,
// the first text/html part, and every attachment, in order.
func collectPart(m *Message, p bodyPart) {
	if strings.HasPrefix(p.mediaType, "multipart/") {
		boundary := p.params["boundary"]
		if boundary == "" {
			return
		}
		mr := multipart.NewReader(bytes.NewReader(p.content), boundary)
		for {
			sub, err := mr.NextPart()
			if err != nil {
				// io.EOF or a ragged boundary; keep what we have.
				return
			}
			content, err := io.ReadAll(sub)
			if err != nil {
				continue
			}
			mediaType, params := parseContentType(sub.Header.Get("Content-Type"))
			collectPart(m, bodyPart{
				mediaType:        mediaType,
				params:           params,
				disposition:      sub.Header.Get("Content-Disposition"),
				transferEncoding: sub.Header.Get("Content-Transfer-Encoding"),
				content:          content,
			})
		}
	}

	content := decodeTransferEncoding(p.content, p.transferEncoding)

	dispType, dispParams := parseDisposition(p.disposition)
	name := dispParams["filename"]
	if name == "" {
		name = p.params["name"]
	}

	isText := p.mediaType == "text/plain" || p.mediaType == "text/html"
	if dispType == "attachment" || (name != "" && !isText) {
		m.Attachments = append(m.Attachments, Attachment{
			Name:        name,
			ContentType: p.mediaType,
			Size:        int64(len(content)),
		})
		return
	}

	switch p.mediaType {
	case "text/plain":
		if m.Text == nil {
			text := charset.ToUTF8(content, p.params["charset"])
			m.Text = &text
		}
	case "text/html":
		if m.HTML == nil {
			html := charset.ToUTF8(content, p.params["charset"])
			m.HTML = &html
		}
	}
}

// decodeTransferEncoding reverses base64 and quoted-printable content
// encodings. Anything else (7bit, 8bit, binary, unknown) passes through.
func decodeTransferEncoding(content []byte, encoding string) []byte {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		cleaned := strings.Map(dropSpace, string(content))
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			// Tolerate stripped padding.
			decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(cleaned, "="))
			if err != nil {
				return content
			}
		}
		return decoded
	case "quoted-printable":
		decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(content)))
		if err != nil && len(decoded) == 0 {
			return content
		}
		return decoded
	default:
		return content
	}
}

func dropSpace(r rune) rune {
	switch r {
	case ' ', '\t', '\r', '\n':
		return -1
	}
	return r
}

// firstAddress returns the first address of a header value, falling back
// to the raw value when the list does not parse but looks like an
// address.
func firstAddress(v string) string {
	if v == "" {
		return ""
	}
	addrs, err := mail.ParseAddressList(v)
	if err != nil || len(addrs) == 0 {
		v = strings.TrimSpace(v)
		if strings.Contains(v, "@") {
			return v
		}
		return ""
	}
	return addrs[0].Address
}

// decodeHeader decodes RFC 2047 encoded words, including charsets the
// stdlib decoder does not handle on its own.
func decodeHeader(s string) string {
	dec := mime.WordDecoder{
		CharsetReader: func(cs string, input io.Reader) (io.Reader, error) {
			data, err := io.ReadAll(input)
			if err != nil {
				return nil, err
			}
			return strings.NewReader(charset.ToUTF8(data, cs)), nil
		},
	}
	decoded, err := dec.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

func parseContentType(v string) (string, map[string]string) {
	if v == "" {
		return "text/plain", nil
	}
	mediaType, params, err := mime.ParseMediaType(v)
	if err != nil {
		return "text/plain", nil
	}
	return strings.ToLower(mediaType), params
}

func parseDisposition(v string) (string, map[string]string) {
	if v == "" {
		return "", nil
	}
	dispType, params, err := mime.ParseMediaType(v)
	if err != nil {
		return "", nil
	}
	return strings.ToLower(dispType), params
}
