package emailcheck

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"

	"invoice-pipeline/internal/apperr"
	"invoice-pipeline/internal/models"
	"invoice-pipeline/internal/utils"
)

const (
	connectTimeout = 30 * time.Second
	authTimeout    = 15 * time.Second
)

// Mailbox wraps github.com/emersion/go-imap/client into the explicit
// connect -> open_folder -> search -> fetch stage pipeline §4.C1 names,
// replacing the teacher's long-lived IDLE-loop-plus-goroutine shape
// (StartMonitoring/fetchEmails) with one bounded call per stage.
type Mailbox struct {
	client      *client.Client
	UIDValidity uint32
}

// Dial connects and authenticates against a Monitor's IMAP configuration.
// decryptionKey is the EMAIL_ENCRYPTION_KEY used to recover a stored
// password; OAuth monitors use the stored access token directly.
func Dial(ctx context.Context, m *models.Monitor, decryptionKey string) (*Mailbox, error) {
	addr := net.JoinHostPort(m.IMAPHost, strconv.Itoa(m.IMAPPort))

	dialErrCh := make(chan error, 1)
	var c *client.Client
	go func() {
		var err error
		c, err = client.DialTLS(addr, &tls.Config{ServerName: m.IMAPHost})
		dialErrCh <- err
	}()

	select {
	case err := <-dialErrCh:
		if err != nil {
			return nil, apperr.Wrap(apperr.Unreachable, "failed to connect to mailbox", err)
		}
	case <-time.After(connectTimeout):
		return nil, apperr.New(apperr.Unreachable, "timed out connecting to mailbox")
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.Unreachable, "connect cancelled", ctx.Err())
	}

	loginErrCh := make(chan error, 1)
	go func() {
		loginErrCh <- authenticate(c, m, decryptionKey)
	}()

	select {
	case err := <-loginErrCh:
		if err != nil {
			_ = c.Logout()
			return nil, apperr.Wrap(apperr.AuthFailed, "mailbox authentication failed", err)
		}
	case <-time.After(authTimeout):
		_ = c.Logout()
		return nil, apperr.New(apperr.AuthFailed, "timed out authenticating with mailbox")
	case <-ctx.Done():
		_ = c.Logout()
		return nil, apperr.Wrap(apperr.AuthFailed, "authentication cancelled", ctx.Err())
	}

	return &Mailbox{client: c}, nil
}

func authenticate(c *client.Client, m *models.Monitor, decryptionKey string) error {
	if m.AuthMethod == "oauth2" {
		if m.OAuthAccessToken == nil || strings.TrimSpace(*m.OAuthAccessToken) == "" {
			return fmt.Errorf("oauth2 monitor missing access token")
		}
		authClient := sasl.NewXoauth2Client(m.EmailAddress, *m.OAuthAccessToken)
		return c.Authenticate(authClient)
	}

	if m.EncryptedPassword == nil {
		return fmt.Errorf("password monitor missing encrypted password")
	}
	password, err := utils.DecryptAtRest(decryptionKey, *m.EncryptedPassword)
	if err != nil {
		return fmt.Errorf("decrypting stored password: %w", err)
	}
	return c.Login(m.EmailAddress, password)
}

func (mb *Mailbox) Close() error {
	if mb.client == nil {
		return nil
	}
	return mb.client.Logout()
}

// OpenFolder selects the target folder and captures UIDVALIDITY (§4.C1
// "Mailbox interaction", §6 "UIDVALIDITY must be captured at mailbox-open
// time").
func (mb *Mailbox) OpenFolder(folder string) error {
	if strings.TrimSpace(folder) == "" {
		folder = "INBOX"
	}
	status, err := mb.client.Select(folder, false)
	if err != nil {
		return apperr.Wrap(apperr.Unreachable, "failed to open mailbox folder", err)
	}
	mb.UIDValidity = status.UidValidity
	return nil
}

// SearchSince runs a SINCE <date> search and returns at most limit UIDs,
// taking the most recent ones as the spec requires.
func (mb *Mailbox) SearchSince(since time.Time, limit int) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	uids, err := mb.client.UidSearch(criteria)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unreachable, "mailbox search failed", err)
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}
	return uids, nil
}

// Fetch pulls full bodies and structure for the given UIDs in chunks of at
// most 50, mirroring the teacher's fetchEmails chunking, and returns them
// parsed into the package's normalized Message shape.
func (mb *Mailbox) Fetch(uids []uint32) ([]*Message, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	const chunkSize = 50
	var out []*Message
	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, imap.FetchBodyStructure, imap.FetchRFC822}

	for i := 0; i < len(uids); i += chunkSize {
		end := i + chunkSize
		if end > len(uids) {
			end = len(uids)
		}
		seqSet := new(imap.SeqSet)
		seqSet.AddNum(uids[i:end]...)

		messages := make(chan *imap.Message, 32)
		errCh := make(chan error, 1)
		go func() {
			errCh <- mb.client.UidFetch(seqSet, items, messages)
		}()

		for raw := range messages {
			msg, err := parseMessage(raw, mb.UIDValidity)
			if err != nil {
				continue
			}
			out = append(out, msg)
		}
		if err := <-errCh; err != nil {
			return out, apperr.Wrap(apperr.Unreachable, "mailbox fetch failed", err)
		}
	}
	return out, nil
}

func parseMessage(raw *imap.Message, uidValidity uint32) (*Message, error) {
	if raw == nil {
		return nil, fmt.Errorf("nil message")
	}

	msg := &Message{
		UID:         raw.Uid,
		UIDValidity: uidValidity,
	}

	if raw.Envelope != nil {
		msg.Subject = raw.Envelope.Subject
		msg.MessageID = strings.Trim(raw.Envelope.MessageId, "<>")
		if len(raw.Envelope.From) > 0 {
			msg.From = formatAddress(raw.Envelope.From[0])
		}
		if !raw.Envelope.Date.IsZero() {
			d := raw.Envelope.Date
			msg.ReceivedDate = &d
		}
	}

	for _, literal := range raw.Body {
		if literal == nil {
			continue
		}
		body, err := io.ReadAll(literal)
		if err != nil {
			continue
		}
		attachments, err := extractAttachments(body)
		if err == nil {
			msg.Attachments = append(msg.Attachments, attachments...)
		}
	}

	return msg, nil
}

func formatAddress(a *imap.Address) string {
	if a == nil {
		return ""
	}
	addr := a.MailboxName + "@" + a.HostName
	if strings.TrimSpace(a.PersonalName) == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", a.PersonalName, addr)
}

// extractAttachments walks a raw RFC 822 message with
// github.com/emersion/go-message/mail, classifying MIME parts by
// disposition the same way the teacher's countInvoiceAttachments does.
func extractAttachments(raw []byte) ([]AttachmentMeta, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	var out []AttachmentMeta
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			data, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			out = append(out, AttachmentMeta{
				Filename:    filename,
				ContentType: contentType,
				Size:        int64(len(data)),
				Bytes:       data,
			})
		case *mail.InlineHeader:
			contentType, params, _ := h.ContentType()
			if contentType == "application/pdf" || strings.Contains(contentType, "image/") {
				data, readErr := io.ReadAll(part.Body)
				if readErr != nil {
					continue
				}
				out = append(out, AttachmentMeta{
					Filename:    params["name"],
					ContentType: contentType,
					Size:        int64(len(data)),
					Bytes:       data,
				})
			}
		}
	}
	return out, nil
}
