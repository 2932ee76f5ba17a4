package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSMSConfigValidate(t *testing.T) {
	valid := SMSConfig{
		APIURL:     "https://gateway.example/messages",
		AccountSID: "sid",
		AuthToken:  "token",
		From:       "0200000000",
	}

	tests := []struct {
		name   string
		mutate func(*SMSConfig)
		errMsg string
	}{
		{"valid", func(c *SMSConfig) {}, ""},
		{"missing url", func(c *SMSConfig) { c.APIURL = "" }, "API URL"},
		{"missing sid", func(c *SMSConfig) { c.AccountSID = "" }, "account SID"},
		{"missing token", func(c *SMSConfig) { c.AuthToken = "" }, "auth token"},
		{"missing from", func(c *SMSConfig) { c.From = "" }, "sender number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate = %v, want error containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestSMSTransportSend(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"To":   r.PostFormValue("To"),
			"From": r.PostFormValue("From"),
			"Body": r.PostFormValue("Body"),
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "sid" || pass != "token" {
			t.Errorf("basic auth = %q/%q", user, pass)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sid":"SM123"}`))
	}))
	defer server.Close()

	transport, err := NewSMSTransport(SMSConfig{
		APIURL:     server.URL,
		AccountSID: "sid",
		AuthToken:  "token",
		From:       "0200000000",
	})
	if err != nil {
		t.Fatalf("NewSMSTransport: %v", err)
	}

	id, err := transport.Send(context.Background(), "01011112222", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "SM123" {
		t.Errorf("message id = %q, want SM123", id)
	}
	if gotForm["To"] != "01011112222" || gotForm["From"] != "0200000000" || gotForm["Body"] != "hello" {
		t.Errorf("form = %v", gotForm)
	}
}

func TestSMSTransportGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient balance", http.StatusPaymentRequired)
	}))
	defer server.Close()

	transport, err := NewSMSTransport(SMSConfig{
		APIURL:     server.URL,
		AccountSID: "sid",
		AuthToken:  "token",
		From:       "0200000000",
	})
	if err != nil {
		t.Fatalf("NewSMSTransport: %v", err)
	}

	if _, err := transport.Send(context.Background(), "01011112222", "hello"); err == nil {
		t.Error("expected error for non-2xx status")
	}
}

func TestHTTPShortener(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != "https://plant.example/actions/42" {
			t.Errorf("url param = %q", got)
		}
		w.Write([]byte("https://sho.rt/abc\n"))
	}))
	defer server.Close()

	s, err := NewHTTPShortener(server.URL, 0)
	if err != nil {
		t.Fatalf("NewHTTPShortener: %v", err)
	}

	short, err := s.Shorten(context.Background(), "https://plant.example/actions/42")
	if err != nil {
		t.Fatalf("Shorten: %v", err)
	}
	if short != "https://sho.rt/abc" {
		t.Errorf("short = %q", short)
	}
}

func TestHTTPShortenerRejectsEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  \n"))
	}))
	defer server.Close()

	s, err := NewHTTPShortener(server.URL, 0)
	if err != nil {
		t.Fatalf("NewHTTPShortener: %v", err)
	}

	if _, err := s.Shorten(context.Background(), "https://x"); err == nil {
		t.Error("expected error for empty body")
	}
}
