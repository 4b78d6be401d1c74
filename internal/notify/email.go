package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/hashicorp/go-multierror"

	"github.com/pratik-mahalle/watchpost/internal/domain/notification"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
)

// EmailConfig configures the SMTP transport
type EmailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	FromName   string
	Recipients []string
	// TLSConfig is used for STARTTLS when the server offers it
	TLSConfig *tls.Config
}

// EmailTransport sends alerts as multipart emails over SMTP
type EmailTransport struct {
	cfg    EmailConfig
	logger *logger.Logger
}

// NewEmailTransport creates the email transport
func NewEmailTransport(cfg EmailConfig, log *logger.Logger) *EmailTransport {
	return &EmailTransport{cfg: cfg, logger: log.Component("notify.email")}
}

// Channel implements notification.Transport
func (t *EmailTransport) Channel() notification.Channel {
	return notification.ChannelEmail
}

// Send mails every recipient. One failing recipient does not stop the rest;
// the channel counts as delivered when at least one succeeded.
func (t *EmailTransport) Send(ctx context.Context, p *notification.Payload) (bool, error) {
	if len(t.cfg.Recipients) == 0 {
		return false, nil
	}

	var result error
	delivered := 0
	for _, rcpt := range t.cfg.Recipients {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}
		msg, err := t.buildMessage(p, rcpt)
		if err != nil {
			return false, fmt.Errorf("failed to build email: %w", err)
		}
		if err := t.sendOne(ctx, rcpt, msg); err != nil {
			t.logger.WithFields(map[string]interface{}{
				"recipient": rcpt,
				"alert_id":  p.Alert.ID,
			}).WarnWithErr(err, "Email delivery to recipient failed")
			result = multierror.Append(result, fmt.Errorf("%s: %w", rcpt, err))
			continue
		}
		delivered++
	}

	if delivered > 0 {
		t.logger.WithFields(map[string]interface{}{
			"alert_id":   p.Alert.ID,
			"recipients": delivered,
		}).Info("Email alerts sent")
	}
	return delivered > 0, result
}

func (t *EmailTransport) sendOne(ctx context.Context, rcpt string, msg []byte) error {
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	c, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer c.Close()

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		c.CommandTimeout = remaining
		c.SubmissionTimeout = remaining
	}

	if ok, _ := c.Extension("STARTTLS"); ok {
		tlsCfg := t.cfg.TLSConfig
		if tlsCfg == nil {
			tlsCfg = &tls.Config{ServerName: t.cfg.Host}
		}
		if err := c.StartTLS(tlsCfg); err != nil {
			return fmt.Errorf("starttls failed: %w", err)
		}
	}

	if t.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", t.cfg.Username, t.cfg.Password)); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := c.SendMail(t.cfg.From, []string{rcpt}, bytes.NewReader(msg)); err != nil {
		return err
	}
	return c.Quit()
}

// buildMessage renders a multipart/mixed message holding the text and HTML
// alternatives plus the alert image when the file exists
func (t *EmailTransport) buildMessage(p *notification.Payload, rcpt string) ([]byte, error) {
	var image []byte
	if path := p.Alert.ImagePath; path != "" {
		if data, err := os.ReadFile(path); err == nil {
			image = data
		}
	}

	html, err := HTMLBody(p, image != nil)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	from := t.cfg.From
	if t.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", t.cfg.FromName, t.cfg.From)
	}
	header := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\nMIME-Version: 1.0\r\nContent-Type: multipart/mixed; boundary=%s\r\n\r\n",
		from, rcpt, Subject(p), p.Timestamp.UTC().Format(time.RFC1123Z), mixed.Boundary())

	var body bytes.Buffer
	alt := multipart.NewWriter(&body)
	for _, part := range []struct{ ctype, content string }{
		{"text/plain; charset=utf-8", TextBody(p)},
		{"text/html; charset=utf-8", html},
	} {
		w, err := alt.CreatePart(textproto.MIMEHeader{"Content-Type": {part.ctype}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := alt.Close(); err != nil {
		return nil, err
	}

	w, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"multipart/alternative; boundary=" + alt.Boundary()},
	})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return nil, err
	}

	if image != nil {
		w, err := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"image/jpeg"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-ID":                {"<alert_image>"},
			"Content-Disposition":       {fmt.Sprintf("inline; filename=%q", filepath.Base(p.Alert.ImagePath))},
		})
		if err != nil {
			return nil, err
		}
		enc := base64.NewEncoder(base64.StdEncoding, &lineWrapper{w: w})
		if _, err := enc.Write(image); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return append([]byte(header), buf.Bytes()...), nil
}

// lineWrapper breaks base64 output into 76 character lines
type lineWrapper struct {
	w   interface{ Write([]byte) (int, error) }
	col int
}

func (l *lineWrapper) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := 76 - l.col
		if n > len(p) {
			n = len(p)
		}
		if _, err := l.w.Write(p[:n]); err != nil {
			return written, err
		}
		written += n
		l.col += n
		p = p[n:]
		if l.col == 76 {
			if _, err := l.w.Write([]byte("\r\n")); err != nil {
				return written, err
			}
			l.col = 0
		}
	}
	return written, nil
}
