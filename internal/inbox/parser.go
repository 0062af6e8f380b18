package inbox

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mailtriage/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/net/html"
)

// Message is one decoded inbound email
type Message struct {
	UID       uint32 // IMAP UID, zero for offline sources
	MessageID string
	From      string
	Subject   string
	Body      string
	Date      time.Time
}

// ToInbound converts a decoded message into pipeline input
func (m *Message) ToInbound() models.InboundEmail {
	return models.InboundEmail{
		MessageID:  m.MessageID,
		Sender:     m.From,
		Subject:    m.Subject,
		Body:       m.Body,
		ReceivedAt: m.Date,
	}
}

// ParseEMLFile parses a single EML file
func ParseEMLFile(filename string) (*Message, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open EML file: %w", err)
	}
	defer file.Close()

	return ParseMessage(file)
}

// ParseMBOXFile parses an MBOX file and returns all messages
func ParseMBOXFile(filename string) ([]*Message, error) {
	var all []*Message

	err := ParseMBOXFileStreaming(filename, 100, func(batch []*Message, progress MBOXProgress) error {
		all = append(all, batch...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return all, nil
}

// MBOXProgress tracks the progress of MBOX file parsing
type MBOXProgress struct {
	BytesProcessed   int64
	TotalBytes       int64
	MessagesParsed   int
	PercentComplete  float64
	CurrentBatchSize int
}

// MBOXBatchCallback is called for each batch of messages parsed
type MBOXBatchCallback func(batch []*Message, progress MBOXProgress) error

// ParseMBOXFileStreaming parses an MBOX file in batches with progress tracking.
// Messages that fail to parse are skipped.
func ParseMBOXFileStreaming(filename string, batchSize int, callback MBOXBatchCallback) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open MBOX file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}

	return parseMBOX(file, fileInfo.Size(), batchSize, callback)
}

func parseMBOX(r io.Reader, totalBytes int64, batchSize int, callback MBOXBatchCallback) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024) // 10MB max line

	var batch []*Message
	var current bytes.Buffer
	var parsed int
	var bytesProcessed int64

	progress := func(percent float64) MBOXProgress {
		return MBOXProgress{
			BytesProcessed:   bytesProcessed,
			TotalBytes:       totalBytes,
			MessagesParsed:   parsed,
			PercentComplete:  percent,
			CurrentBatchSize: len(batch),
		}
	}

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if msg, err := ParseMessage(bytes.NewReader(current.Bytes())); err == nil {
			batch = append(batch, msg)
			parsed++
		}
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		bytesProcessed += int64(len(line) + 1)

		// Each message starts with a "From " separator line
		if strings.HasPrefix(line, "From ") {
			flush()
			if len(batch) >= batchSize {
				percent := 0.0
				if totalBytes > 0 {
					percent = float64(bytesProcessed) / float64(totalBytes) * 100
				}
				if err := callback(batch, progress(percent)); err != nil {
					return fmt.Errorf("batch processing error at message %d: %w", parsed, err)
				}
				batch = nil
			}
			continue
		}

		// Undo ">From " quoting
		if strings.HasPrefix(line, ">From ") {
			line = line[1:]
		}
		current.WriteString(line)
		current.WriteString("\r\n")
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading MBOX file: %w", err)
	}

	flush()
	if len(batch) > 0 {
		if err := callback(batch, progress(100.0)); err != nil {
			return fmt.Errorf("final batch processing error: %w", err)
		}
	}

	return nil
}

// ParseDirectory recursively parses all EML files in a directory, skipping unreadable ones
func ParseDirectory(dirPath string) ([]*Message, error) {
	var messages []*Message

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".eml") {
			return nil
		}

		msg, err := ParseEMLFile(path)
		if err != nil {
			return nil
		}
		messages = append(messages, msg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return messages, nil
}

// ParseMessage decodes headers and body of one RFC 5322 message. The body is the
// first text/plain part, else the first text/html part converted to text, else the
// first inline part. On a decoding error the returned message holds whatever was
// decoded before the failure, together with the error.
func ParseMessage(r io.Reader) (*Message, error) {
	msg := &Message{Date: time.Now()}

	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return msg, fmt.Errorf("failed to read email message: %w", err)
	}
	defer mr.Close()

	header := mr.Header
	msg.Subject = decodeSubject(header)
	msg.From = decodeFrom(header)
	if id, err := header.MessageID(); err == nil && id != "" {
		msg.MessageID = id
	} else {
		msg.MessageID = cleanMessageID(header.Get("Message-Id"))
	}
	if date, err := header.Date(); err == nil && !date.IsZero() {
		msg.Date = date
	}

	var plain, markup, other string
	var havePlain, haveHTML, haveOther bool
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			msg.Body = pickBody(plain, havePlain, markup, haveHTML, other)
			return msg, fmt.Errorf("failed to read message part: %w", err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		content, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		ct, _, _ := h.ContentType()
		switch {
		case strings.HasPrefix(ct, "text/plain") && !havePlain:
			plain, havePlain = string(content), true
		case strings.HasPrefix(ct, "text/html") && !haveHTML:
			markup, haveHTML = string(content), true
		case !haveOther:
			other, haveOther = string(content), true
		}

		if havePlain {
			break
		}
	}

	msg.Body = pickBody(plain, havePlain, markup, haveHTML, other)
	return msg, nil
}

func pickBody(plain string, havePlain bool, markup string, haveHTML bool, other string) string {
	switch {
	case havePlain:
		return strings.TrimSpace(plain)
	case haveHTML:
		return cleanHTML(markup)
	default:
		return strings.TrimSpace(other)
	}
}

func decodeSubject(h mail.Header) string {
	subject, err := h.Subject()
	if err != nil {
		return h.Get("Subject")
	}
	return subject
}

// decodeFrom returns the bare address of the first sender, or the raw header if it cannot be parsed
func decodeFrom(h mail.Header) string {
	addrs, err := h.AddressList("From")
	if err == nil && len(addrs) > 0 {
		return addrs[0].Address
	}
	return strings.TrimSpace(h.Get("From"))
}

// blockBreaks is the text inserted after elements that end a line
var blockBreaks = map[string]string{
	"br":  "\n",
	"div": "\n",
	"p":   "\n\n",
}

// cleanHTML renders an HTML body as plain text
func cleanHTML(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	doc.Find("head, script, style").Remove()
	doc.Find("br, div, p").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			if n.Parent == nil {
				continue
			}
			n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: blockBreaks[n.Data]}, n.NextSibling)
		}
	})

	text := strings.ReplaceAll(doc.Text(), "\u00a0", " ")
	text = strings.TrimSpace(text)

	// Remove excessive newlines
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}

	return text
}

// cleanMessageID removes < and > from Message-IDs
func cleanMessageID(msgID string) string {
	msgID = strings.TrimSpace(msgID)
	msgID = strings.TrimPrefix(msgID, "<")
	msgID = strings.TrimSuffix(msgID, ">")
	return msgID
}
