package inbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

const plainMessage = `From: Jane Doe <jane@example.com>
To: support@example.com
Subject: =?UTF-8?B?UsOpc3Vtw6kgaGVscA==?=
Message-ID: <abc123@example.com>
Date: Mon, 02 Jan 2006 15:04:05 +0000
Content-Type: text/plain; charset=utf-8

My customer ID: AB1234
The export button does nothing.
`

const alternativeMessage = `From: bob@example.com
Subject: Billing question
Message-ID: <multi@example.com>
Date: Tue, 03 Jan 2006 10:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="XYZ"

--XYZ
Content-Type: text/html; charset=utf-8

<p>HTML <b>version</b></p>
--XYZ
Content-Type: text/plain; charset=utf-8

Plain version
--XYZ--
`

const htmlOnlyMessage = `From: carol@example.com
Subject: Hello
Content-Type: text/html; charset=utf-8

<html><head><style>p{color:red}</style></head><body><p>Hi &amp; thanks</p><br>Bye</body></html>
`

func TestParseMessage_PlainText(t *testing.T) {
	msg, err := ParseMessage(strings.NewReader(crlf(plainMessage)))
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", msg.From)
	assert.Equal(t, "Résumé help", msg.Subject)
	assert.Equal(t, "abc123@example.com", msg.MessageID)
	assert.Equal(t, time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC), msg.Date.UTC())
	assert.Equal(t, "My customer ID: AB1234\r\nThe export button does nothing.", msg.Body)
}

func TestParseMessage_PrefersPlainPart(t *testing.T) {
	msg, err := ParseMessage(strings.NewReader(crlf(alternativeMessage)))
	require.NoError(t, err)

	assert.Equal(t, "bob@example.com", msg.From)
	assert.Equal(t, "Billing question", msg.Subject)
	assert.Equal(t, "Plain version", msg.Body)
}

func TestParseMessage_HTMLOnly(t *testing.T) {
	before := time.Now()
	msg, err := ParseMessage(strings.NewReader(crlf(htmlOnlyMessage)))
	require.NoError(t, err)

	assert.Equal(t, "Hi & thanks\n\nBye", msg.Body)
	assert.Empty(t, msg.MessageID)
	assert.False(t, msg.Date.Before(before), "missing Date header falls back to now")
}

func TestToInbound(t *testing.T) {
	msg, err := ParseMessage(strings.NewReader(crlf(plainMessage)))
	require.NoError(t, err)

	in := msg.ToInbound()
	assert.Equal(t, "jane@example.com", in.Sender)
	assert.Equal(t, "Résumé help", in.Subject)
	assert.Equal(t, "abc123@example.com", in.MessageID)
	assert.Equal(t, msg.Body, in.Body)
	assert.Equal(t, msg.Date, in.ReceivedAt)
}

func TestParseEMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.eml")
	require.NoError(t, os.WriteFile(path, []byte(crlf(plainMessage)), 0o600))

	msg, err := ParseEMLFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", msg.From)

	_, err = ParseEMLFile(filepath.Join(t.TempDir(), "missing.eml"))
	assert.Error(t, err)
}

func TestParseMBOXFile(t *testing.T) {
	mbox := "From jane@example.com Mon Jan  2 15:04:05 2006\n" + plainMessage +
		"\nFrom bob@example.com Tue Jan  3 10:00:00 2006\n" + alternativeMessage

	path := filepath.Join(t.TempDir(), "inbox.mbox")
	require.NoError(t, os.WriteFile(path, []byte(mbox), 0o600))

	msgs, err := ParseMBOXFile(path)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "jane@example.com", msgs[0].From)
	assert.Equal(t, "bob@example.com", msgs[1].From)
	assert.Equal(t, "Plain version", msgs[1].Body)
}

func TestParseMBOXFileStreaming_Batches(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString("From someone@example.com Mon Jan  2 15:04:05 2006\n")
		b.WriteString(plainMessage)
	}

	path := filepath.Join(t.TempDir(), "batch.mbox")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))

	var sizes []int
	var last MBOXProgress
	err := ParseMBOXFileStreaming(path, 2, func(batch []*Message, progress MBOXProgress) error {
		sizes = append(sizes, len(batch))
		last = progress
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, 5, last.MessagesParsed)
	assert.Equal(t, 100.0, last.PercentComplete)
}

func TestParseDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.eml"), []byte(crlf(plainMessage)), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.EML"), []byte(crlf(alternativeMessage)), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o600))

	msgs, err := ParseDirectory(dir)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"blocks and script", `<div>Line one</div><script>alert(1)</script><p>Line &lt;two&gt;</p>`, "Line one\nLine <two>"},
		{"numeric entities", `<p>We&#8217;re sorry &#x2013; refund sent</p>`, "We\u2019re sorry \u2013 refund sent"},
		{"named entities", `<p>Caf&eacute;&nbsp;order &copy; 2026</p>`, "Caf\u00e9 order \u00a9 2026"},
		{"unclosed tags", `<div>Hello<br>there`, "Hello\nthere"},
		{"title dropped", `<html><head><title>Ignore</title></head><body>Body</body></html>`, "Body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanHTML(tt.html))
		})
	}
}
