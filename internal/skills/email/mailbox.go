package email

import (
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// maxBodyChars caps the body handed to the model.
const maxBodyChars = 8000

// Dialer opens an unauthenticated IMAP connection.
type Dialer func(addr string) (*client.Client, error)

func dialTLS(addr string) (*client.Client, error) {
	return client.DialTLS(addr, &tls.Config{})
}

// Summary is one line of a message listing.
type Summary struct {
	SeqNum  uint32
	UID     uint32
	From    string
	Subject string
	Date    time.Time
	Seen    bool
}

// Message is a fetched message with its text body.
type Message struct {
	Summary
	To   []string
	Body string
}

func (s *Skill) connect(a Account) (*client.Client, error) {
	c, err := s.dial(a.imapAddr())
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := c.Login(a.Email, a.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return c, nil
}

// Verify logs in and out, proving the credentials work.
func (s *Skill) Verify(a Account) error {
	c, err := s.connect(a)
	if err != nil {
		return err
	}
	return c.Logout()
}

// Recent returns the newest limit messages of mailbox, newest first.
func (s *Skill) Recent(a Account, mailbox string, limit int) ([]Summary, error) {
	c, err := s.connect(a)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	mbox, err := c.Select(mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox: %w", err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}
	from := uint32(1)
	if mbox.Messages > uint32(limit) {
		from = mbox.Messages - uint32(limit) + 1
	}
	seqset := new(imap.SeqSet)
	seqset.AddRange(from, mbox.Messages)
	return fetchSummaries(c, seqset)
}

// Search runs an IMAP SEARCH. "FROM x", "SUBJECT x", "UNSEEN" and "SEEN"
// map to their criteria; anything else is a full-text search.
func (s *Skill) Search(a Account, mailbox, query string, limit int) ([]Summary, error) {
	c, err := s.connect(a)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select(mailbox, true); err != nil {
		return nil, fmt.Errorf("failed to select mailbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	upper := strings.ToUpper(query)
	switch {
	case strings.HasPrefix(upper, "FROM "):
		criteria.Header.Set("From", strings.TrimSpace(query[len("FROM "):]))
	case strings.HasPrefix(upper, "SUBJECT "):
		criteria.Header.Set("Subject", strings.TrimSpace(query[len("SUBJECT "):]))
	case upper == "UNSEEN":
		criteria.WithoutFlags = []string{imap.SeenFlag}
	case upper == "SEEN":
		criteria.WithFlags = []string{imap.SeenFlag}
	default:
		criteria.Text = []string{query}
	}

	seqs, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(seqs) == 0 {
		return nil, nil
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	if len(seqs) > limit {
		seqs = seqs[len(seqs)-limit:]
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(seqs...)
	return fetchSummaries(c, seqset)
}

func fetchSummaries(c *client.Client, seqset *imap.SeqSet) ([]Summary, error) {
	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid}, messages)
	}()

	var out []Summary
	for msg := range messages {
		out = append(out, summarize(msg))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeqNum > out[j].SeqNum })
	return out, nil
}

func summarize(msg *imap.Message) Summary {
	sum := Summary{SeqNum: msg.SeqNum, UID: msg.Uid}
	if msg.Envelope != nil {
		sum.Subject = msg.Envelope.Subject
		sum.Date = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			sum.From = msg.Envelope.From[0].Address()
		}
	}
	for _, f := range msg.Flags {
		if f == imap.SeenFlag {
			sum.Seen = true
			break
		}
	}
	return sum
}

// Read fetches one message by sequence number.
func (s *Skill) Read(a Account, mailbox string, seq uint32) (*Message, error) {
	c, err := s.connect(a)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select(mailbox, true); err != nil {
		return nil, fmt.Errorf("failed to select mailbox: %w", err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(seq)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		if msg == nil {
			msg = m
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %d not found", seq)
	}

	out := &Message{Summary: summarize(msg)}
	if msg.Envelope != nil {
		for _, addr := range msg.Envelope.To {
			out.To = append(out.To, addr.Address())
		}
	}
	if r := msg.GetBody(section); r != nil {
		mr, err := mail.ReadMessage(r)
		if err != nil {
			return nil, fmt.Errorf("failed to parse message: %w", err)
		}
		body, err := extractBody(mr)
		if err != nil {
			body = fmt.Sprintf("(could not read body: %v)", err)
		}
		out.Body = body
	}
	return out, nil
}

// extractBody returns the first text part of msg.
func extractBody(msg *mail.Message) (string, error) {
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		body, err := io.ReadAll(msg.Body)
		return string(body), err
	}
	return readPart(msg.Body, mediaType, params, msg.Header.Get("Content-Transfer-Encoding"))
}

func readPart(r io.Reader, mediaType string, params map[string]string, encoding string) (string, error) {
	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		mr := multipart.NewReader(r, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", err
			}
			pt, pp, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
			if strings.HasPrefix(pt, "text/") || strings.HasPrefix(pt, "multipart/") {
				// multipart.Part decodes quoted-printable itself.
				return readPart(p, pt, pp, "")
			}
		}
		return "", fmt.Errorf("no text part found")
	case strings.HasPrefix(mediaType, "text/"):
		if strings.EqualFold(encoding, "quoted-printable") {
			r = quotedprintable.NewReader(r)
		}
		body, err := io.ReadAll(r)
		return string(body), err
	}
	return "", fmt.Errorf("unsupported content type: %s", mediaType)
}
