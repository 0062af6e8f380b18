// Package inbox reads unseen support mail over IMAP and decodes it
package inbox

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"mailtriage/internal/config"
	"mailtriage/internal/models"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/rs/zerolog"
)

// Session is one authenticated mailbox connection with the folder selected
type Session interface {
	// ListUnseen returns the UIDs of messages without the \Seen flag, in server order
	ListUnseen(ctx context.Context) ([]uint32, error)
	// Fetch downloads and decodes one message without marking it seen
	Fetch(ctx context.Context, uid uint32) (*Message, error)
	// MarkSeen flags a message as consumed
	MarkSeen(ctx context.Context, uid uint32) error
	Close() error
}

// Transport opens mailbox sessions
type Transport interface {
	Open(ctx context.Context) (Session, error)
}

// IMAPTransport connects to an IMAPS server
type IMAPTransport struct {
	addr     string
	user     string
	password string
	folder   string
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewIMAPTransport creates a transport from the mailbox settings
func NewIMAPTransport(cfg *config.Config, logger zerolog.Logger) *IMAPTransport {
	return &IMAPTransport{
		addr:     cfg.IMAPServer + ":" + strconv.Itoa(cfg.IMAPPort),
		user:     cfg.EmailUser,
		password: cfg.EmailPass,
		folder:   cfg.IMAPFolder,
		timeout:  cfg.PollCycleTimeout(),
		logger:   logger.With().Str("component", "imap").Logger(),
	}
}

// Open dials, logs in and selects the configured folder
func (t *IMAPTransport) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransport, err)
	}

	t.logger.Debug().Str("addr", t.addr).Msg("Connecting to IMAP server")

	c, err := client.DialTLS(t.addr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to IMAP server: %v", models.ErrTransport, err)
	}
	c.Timeout = t.timeout

	if err := c.Login(t.user, t.password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("%w: failed to login: %v", models.ErrTransport, err)
	}

	mbox, err := c.Select(t.folder, false)
	if err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("%w: failed to select mailbox %s: %v", models.ErrTransport, t.folder, err)
	}

	t.logger.Debug().Str("folder", t.folder).Uint32("messages", mbox.Messages).Msg("Mailbox selected")

	return &imapSession{client: c}, nil
}

type imapSession struct {
	client *client.Client
}

func (s *imapSession) ListUnseen(ctx context.Context) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransport, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search unseen messages: %v", models.ErrTransport, err)
	}
	return uids, nil
}

func (s *imapSession) Fetch(ctx context.Context, uid uint32) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransport, err)
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	// Peek keeps the message unseen until MarkSeen
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var raw *imap.Message
	for m := range messages {
		if raw == nil {
			raw = m
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: failed to fetch message %d: %v", models.ErrTransport, uid, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: message %d not found", models.ErrTransport, uid)
	}

	body := raw.GetBody(section)
	if body == nil {
		return &Message{UID: uid, Date: time.Now()}, fmt.Errorf("message %d has no body", uid)
	}

	msg, err := ParseMessage(body)
	msg.UID = uid
	return msg, err
}

func (s *imapSession) MarkSeen(ctx context.Context, uid uint32) error {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.client.UidStore(seqSet, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("%w: failed to mark message %d seen: %v", models.ErrTransport, uid, err)
	}
	return nil
}

func (s *imapSession) Close() error {
	return s.client.Logout()
}
