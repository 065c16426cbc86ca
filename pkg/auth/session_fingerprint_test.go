package auth

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestClientInfo_Fingerprint(t *testing.T) {
	base := ClientInfo{IP: "192.168.1.1", UserAgent: "Mozilla/5.0"}

	tests := []struct {
		name     string
		other    ClientInfo
		wantSame bool
	}{
		{
			name:     "same IP and User-Agent",
			other:    ClientInfo{IP: "192.168.1.1", UserAgent: "Mozilla/5.0"},
			wantSame: true,
		},
		{
			name:     "different IP",
			other:    ClientInfo{IP: "192.168.1.2", UserAgent: "Mozilla/5.0"},
			wantSame: false,
		},
		{
			name:     "different User-Agent",
			other:    ClientInfo{IP: "192.168.1.1", UserAgent: "Chrome/90.0"},
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.SameDevice(tt.other); got != tt.wantSame {
				t.Errorf("SameDevice() = %v, want %v", got, tt.wantSame)
			}
		})
	}

	if got := len(base.Fingerprint()); got != 16 {
		t.Errorf("Fingerprint length = %d, want 16", got)
	}
	if got := (ClientInfo{}).Fingerprint(); got != "" {
		t.Errorf("empty ClientInfo fingerprint = %q, want empty", got)
	}
}

func TestLogAuth_IncludesDevice(t *testing.T) {
	var buf bytes.Buffer
	s := &AccountService{logger: slog.New(slog.NewTextHandler(&buf, nil))}

	info := ClientInfo{IP: "203.0.113.9", UserAgent: "curl/8.0"}
	s.logAuth(WithClientInfo(context.Background(), info), "LOGIN_SUCCESS", uuid.New(), "jane@example.com")

	out := buf.String()
	for _, want := range []string{"event=LOGIN_SUCCESS", "ip=203.0.113.9", "device=" + info.Fingerprint()} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}
