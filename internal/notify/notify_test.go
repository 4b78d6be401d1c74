package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-smtp"

	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/domain/notification"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
)

func testPayload() *notification.Payload {
	loc := "Lobby"
	return &notification.Payload{
		Alert: &alert.Alert{
			ID:        42,
			Type:      alert.TypeMotion,
			Severity:  alert.SeverityHigh,
			Status:    alert.StatusActive,
			Title:     "Motion detected on camera 3",
			Location:  &loc,
			CreatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		},
		Timestamp: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFormatters(t *testing.T) {
	p := testPayload()

	if got := Subject(p); got != "[HIGH] Motion detected on camera 3" {
		t.Errorf("Subject() = %q", got)
	}
	if got := ShortMessage(p); got != "ALERT: Motion detected on camera 3 | HIGH | 2026-05-01T12:00:00Z | Location: Lobby" {
		t.Errorf("ShortMessage() = %q", got)
	}

	p.Alert.Location = nil
	if !strings.HasSuffix(ShortMessage(p), "Location: Unknown") {
		t.Errorf("ShortMessage() without location = %q", ShortMessage(p))
	}

	html, err := HTMLBody(p, true)
	if err != nil {
		t.Fatalf("HTMLBody() error = %v", err)
	}
	if !strings.Contains(html, "#fd7e14") || !strings.Contains(html, "cid:alert_image") {
		t.Errorf("HTMLBody() missing severity color or image reference")
	}
}

func TestWebhookTransport_Send(t *testing.T) {
	var gotBody []byte
	var gotHeader http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr := NewWebhookTransport(WebhookConfig{URL: server.URL, Secret: "s3cret"}, logger.Nop())
	ok, err := tr.Send(context.Background(), testPayload())
	if err != nil || !ok {
		t.Fatalf("Send() = %v, %v", ok, err)
	}

	var body map[string]any
	if err := json.Unmarshal(gotBody, &body); err != nil {
		t.Fatalf("invalid webhook body: %v", err)
	}
	if body["event"] != "security_alert" || body["source"] != "smart_surveillance_system" {
		t.Errorf("webhook body = %v", body)
	}
	if gotHeader.Get("User-Agent") != "SmartSurveillanceSystem/1.0" {
		t.Errorf("User-Agent = %q", gotHeader.Get("User-Agent"))
	}
	if want := SignPayload(gotBody, "s3cret"); gotHeader.Get("X-Webhook-Signature") != want {
		t.Errorf("signature = %q, want %q", gotHeader.Get("X-Webhook-Signature"), want)
	}
}

func TestWebhookTransport_NonOKStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"accepted is not delivered", http.StatusAccepted},
		{"server error", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			tr := NewWebhookTransport(WebhookConfig{URL: server.URL}, logger.Nop())
			ok, err := tr.Send(context.Background(), testPayload())
			if ok || err == nil {
				t.Errorf("Send() = %v, %v; want failure", ok, err)
			}
		})
	}
}

func TestSMSTransport_RecipientIsolation(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req smsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		seen = append(seen, req.To)
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if req.To == "+100" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr := NewSMSTransport(SMSConfig{
		APIURL:     server.URL,
		APIKey:     "key",
		Sender:     "+1",
		Recipients: []string{"+100", "+200"},
	}, logger.Nop())

	ok, err := tr.Send(context.Background(), testPayload())
	if !ok {
		t.Error("Send() = false, want delivered to the healthy recipient")
	}
	if err == nil || !strings.Contains(err.Error(), "+100") {
		t.Errorf("Send() error = %v, want failure for +100", err)
	}
	if len(seen) != 2 {
		t.Errorf("gateway saw %v, want both recipients", seen)
	}
}

func TestSMSTransport_NotConfigured(t *testing.T) {
	tr := NewSMSTransport(SMSConfig{Recipients: []string{"+100"}}, logger.Nop())
	ok, err := tr.Send(context.Background(), testPayload())
	if ok || err != nil {
		t.Errorf("Send() = %v, %v; want false, nil", ok, err)
	}
}

func TestPushTransport(t *testing.T) {
	t.Run("log only without gateway", func(t *testing.T) {
		tr := NewPushTransport(PushConfig{}, logger.Nop())
		ok, err := tr.Send(context.Background(), testPayload())
		if !ok || err != nil {
			t.Errorf("Send() = %v, %v; want true, nil", ok, err)
		}
	})

	t.Run("gateway", func(t *testing.T) {
		var req pushRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&req)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		tr := NewPushTransport(PushConfig{GatewayURL: server.URL, Tokens: []string{"dev1"}}, logger.Nop())
		ok, err := tr.Send(context.Background(), testPayload())
		if !ok || err != nil {
			t.Fatalf("Send() = %v, %v", ok, err)
		}
		if req.Priority != "high" || req.Data["alert_id"] != "42" {
			t.Errorf("push request = %+v", req)
		}
	})
}

type stubTransport struct {
	channel notification.Channel
	calls   int
	fail    bool
}

func (s *stubTransport) Channel() notification.Channel { return s.channel }

func (s *stubTransport) Send(ctx context.Context, p *notification.Payload) (bool, error) {
	s.calls++
	if s.fail {
		return false, errors.New("unreachable")
	}
	return true, nil
}

func TestBreakerTransport_OpensAfterFailures(t *testing.T) {
	stub := &stubTransport{channel: notification.ChannelSMS, fail: true}
	b := WithBreaker(stub, 2, time.Hour, logger.Nop())

	for i := 0; i < 2; i++ {
		if _, err := b.Send(context.Background(), testPayload()); err == nil {
			t.Fatal("Send() through failing transport returned nil error")
		}
	}
	ok, err := b.Send(context.Background(), testPayload())
	if ok || !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Send() = %v, %v; want ErrCircuitOpen", ok, err)
	}
	if stub.calls != 2 {
		t.Errorf("transport called %d times, want 2", stub.calls)
	}
	if b.Channel() != notification.ChannelSMS {
		t.Errorf("Channel() = %s", b.Channel())
	}
}

// smtp test server

type mailBackend struct {
	mu       sync.Mutex
	messages map[string]string
	reject   string
}

func (be *mailBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &mailSession{be: be}, nil
}

type mailSession struct {
	be *mailBackend
	to string
}

func (s *mailSession) AuthPlain(username, password string) error { return nil }

func (s *mailSession) Mail(from string, opts *smtp.MailOptions) error { return nil }

func (s *mailSession) Rcpt(to string, opts *smtp.RcptOptions) error {
	if to == s.be.reject {
		return &smtp.SMTPError{Code: 550, EnhancedCode: smtp.EnhancedCode{5, 1, 1}, Message: "no such user"}
	}
	s.to = to
	return nil
}

func (s *mailSession) Data(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.be.mu.Lock()
	s.be.messages[s.to] = string(b)
	s.be.mu.Unlock()
	return nil
}

func (s *mailSession) Reset() {}

func (s *mailSession) Logout() error { return nil }

func startSMTP(t *testing.T, be *mailBackend) (string, int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := smtp.NewServer(be)
	s.Domain = "localhost"
	s.AllowInsecureAuth = true
	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() { _ = s.Close() })

	addr := l.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func TestEmailTransport_Send(t *testing.T) {
	be := &mailBackend{messages: make(map[string]string), reject: "ghost@example.com"}
	host, port := startSMTP(t, be)

	tr := NewEmailTransport(EmailConfig{
		Host:       host,
		Port:       port,
		From:       "alerts@example.com",
		FromName:   "Watchpost",
		Recipients: []string{"ghost@example.com", "ops@example.com"},
	}, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := tr.Send(ctx, testPayload())
	if !ok {
		t.Fatalf("Send() = false, err = %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "ghost@example.com") {
		t.Errorf("Send() error = %v, want the rejected recipient reported", err)
	}

	be.mu.Lock()
	msg := be.messages["ops@example.com"]
	be.mu.Unlock()
	if !strings.Contains(msg, "Subject: [HIGH] Motion detected on camera 3") {
		t.Errorf("message missing subject:\n%s", msg)
	}
	if !strings.Contains(msg, "multipart/alternative") || !strings.Contains(msg, "text/html") {
		t.Errorf("message is not multipart text and html")
	}
}

func TestEmailTransport_NoRecipients(t *testing.T) {
	tr := NewEmailTransport(EmailConfig{Host: "127.0.0.1", Port: 1}, logger.Nop())
	ok, err := tr.Send(context.Background(), testPayload())
	if ok || err != nil {
		t.Errorf("Send() = %v, %v; want false, nil", ok, err)
	}
}
