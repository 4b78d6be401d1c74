package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/domain/notification"
	apperrors "github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/testutil"
)

func sampleAlert() *alert.Alert {
	return &alert.Alert{
		ID:        9,
		Type:      alert.TypeMotion,
		Severity:  alert.SeverityMedium,
		Status:    alert.StatusActive,
		Title:     "Motion detected on camera 1",
		CreatedAt: time.Now(),
	}
}

func TestNotificationService_FanOutIsolation(t *testing.T) {
	email := testutil.NewMockTransport(notification.ChannelEmail, true)
	sms := &testutil.MockTransport{Ch: notification.ChannelSMS, Panic: true}
	webhook := &testutil.MockTransport{Ch: notification.ChannelWebhook, Err: errors.New("connection refused")}
	push := &testutil.MockTransport{Ch: notification.ChannelPush, Delivered: true, Delay: time.Hour}

	svc := NewNotificationService(
		[]notification.Transport{email, sms, webhook, push},
		50*time.Millisecond,
		testutil.NewTestLogger(),
	)

	var mu sync.Mutex
	seen := map[notification.Channel]bool{}
	records := svc.FanOut(context.Background(), sampleAlert(), func(r notification.Record) {
		mu.Lock()
		seen[r.Channel] = true
		mu.Unlock()
	})

	if len(records) != 4 || len(seen) != 4 {
		t.Fatalf("got %d records and %d callbacks, want 4 each", len(records), len(seen))
	}

	want := map[notification.Channel]bool{
		notification.ChannelEmail:   true,
		notification.ChannelSMS:     false,
		notification.ChannelWebhook: false,
		notification.ChannelPush:    false,
	}
	for _, r := range records {
		if r.Delivered != want[r.Channel] {
			t.Errorf("%s delivered = %v, want %v", r.Channel, r.Delivered, want[r.Channel])
		}
		if !r.Delivered && r.Err == nil {
			t.Errorf("%s failed without an error", r.Channel)
		}
	}
}

func TestNotificationService_FanOutSendsSnapshot(t *testing.T) {
	email := testutil.NewMockTransport(notification.ChannelEmail, true)
	svc := NewNotificationService([]notification.Transport{email}, time.Second, testutil.NewTestLogger())

	a := sampleAlert()
	svc.FanOut(context.Background(), a, nil)
	a.Title = "changed"

	payloads := email.Payloads()
	if len(payloads) != 1 || payloads[0].Alert.Title != "Motion detected on camera 1" {
		t.Errorf("transport saw %+v, want an unchanged snapshot", payloads)
	}
}

func TestNotificationService_SendTestNotification(t *testing.T) {
	email := testutil.NewMockTransport(notification.ChannelEmail, true)
	webhook := testutil.NewMockTransport(notification.ChannelWebhook, false)
	svc := NewNotificationService([]notification.Transport{email, webhook}, time.Second, testutil.NewTestLogger())

	tests := []struct {
		name    string
		channel string
		want    map[string]bool
		wantErr error
	}{
		{
			name:    "all channels",
			channel: "all",
			want:    map[string]bool{"email": true, "sms": false, "webhook": false, "push": false},
		},
		{
			name:    "single channel",
			channel: "email",
			want:    map[string]bool{"email": true},
		},
		{
			name:    "unconfigured channel",
			channel: "push",
			want:    map[string]bool{"push": false},
		},
		{
			name:    "unknown channel",
			channel: "pager",
			wantErr: apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.SendTestNotification(context.Background(), tt.channel)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SendTestNotification() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SendTestNotification() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("SendTestNotification() = %v, want %v", got, tt.want)
			}
			for ch, ok := range tt.want {
				if got[ch] != ok {
					t.Errorf("%s = %v, want %v", ch, got[ch], ok)
				}
			}
		})
	}

	p := email.Payloads()[0]
	if !p.Test || p.Alert.Title != "Test Alert - System Check" || p.Alert.Severity != alert.SeverityLow || p.Location() != "Test Location" {
		t.Errorf("test payload = %+v", p.Alert)
	}
}
