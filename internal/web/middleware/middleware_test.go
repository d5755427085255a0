package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/d21hq/d21/internal/auth"
	"github.com/d21hq/d21/internal/core"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "port stripped",
			remoteAddr: "192.0.2.1:1234",
			want:       "192.0.2.1",
		},
		{
			name:       "untrusted peer cannot spoof",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "192.0.2.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:       "192.0.2.1",
		},
		{
			name:       "trusted proxy real ip",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:443",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "trusted proxy first forwarded hop",
			trusted:    []string{"10.0.0.1"},
			remoteAddr: "10.0.0.1:443",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"},
			want:       "203.0.113.9",
		},
		{
			name:       "trusted proxy garbage header",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:443",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			want:       "10.1.2.3",
		},
		{
			name:       "ipv6 with port",
			remoteAddr: "[2001:db8::1]:8080",
			want:       "2001:db8::1",
		},
		{
			name:       "ipv4-mapped peer in trusted ipv4 cidr",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "[::ffff:10.0.0.1]:443",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "ipv4-mapped peer outside trusted cidr",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "[::ffff:192.0.2.1]:443",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "192.0.2.1",
		},
		{
			name:       "ipv4-mapped trusted single ip",
			trusted:    []string{"::ffff:10.0.0.1"},
			remoteAddr: "10.0.0.1:443",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "invalid cidr ignored",
			trusted:    []string{"nonsense"},
			remoteAddr: "10.1.2.3:443",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "10.1.2.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestMetadata(t *testing.T) {
	var ip, ua string
	h := RequestMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = core.GetIPAddressFromContext(r.Context())
		ua = core.GetUserAgentFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7"
	req.Header.Set("User-Agent", "curl/8.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if ip != "192.0.2.7" {
		t.Errorf("ip = %q, want %q", ip, "192.0.2.7")
	}
	if ua != "curl/8.0" {
		t.Errorf("user agent = %q, want %q", ua, "curl/8.0")
	}
}

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func sign(t *testing.T, secret, subject string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestSession(t *testing.T) {
	v := auth.NewVerifier(testSecret, "")

	tests := []struct {
		name      string
		token     string
		wantUser  string
		wantActor string
	}{
		{"no token", "", "", ""},
		{"valid token", sign(t, testSecret, "user-1"), "user-1", "user-1"},
		{"wrong secret", sign(t, "another-secret-of-sufficient-length-here", "user-1"), "", ""},
		{"malformed", "abc.def", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var user, actor string
			called := false
			h := Session(v, "sb-access-token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				user = auth.UserID(r.Context())
				actor = core.ActorFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if !called {
				t.Fatal("next handler not called")
			}
			if user != tt.wantUser {
				t.Errorf("UserID() = %q, want %q", user, tt.wantUser)
			}
			if actor != tt.wantActor {
				t.Errorf("ActorFromContext() = %q, want %q", actor, tt.wantActor)
			}
		})
	}
}

func TestSession_Cookie(t *testing.T) {
	v := auth.NewVerifier(testSecret, "")
	var user string
	h := Session(v, "sb-access-token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = auth.UserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sb-access-token", Value: sign(t, testSecret, "user-2")})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if user != "user-2" {
		t.Errorf("UserID() = %q, want %q", user, "user-2")
	}
}

func TestLogger_CapturesStatusAndBytes(t *testing.T) {
	var inner *ResponseWriter
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = NewResponseWriter(w)
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK) // ignored
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pot", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("recorder status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if inner.Status() != http.StatusTeapot {
		t.Errorf("Status() = %d, want %d", inner.Status(), http.StatusTeapot)
	}
	if inner.BytesWritten() != len("short and stout") {
		t.Errorf("BytesWritten() = %d, want %d", inner.BytesWritten(), len("short and stout"))
	}
}

func TestResponseWriter_DefaultStatus(t *testing.T) {
	rw := NewResponseWriter(httptest.NewRecorder())
	_, _ = rw.Write([]byte("ok"))
	if rw.Status() != http.StatusOK {
		t.Errorf("Status() = %d, want %d", rw.Status(), http.StatusOK)
	}
	if NewResponseWriter(rw) != rw {
		t.Error("NewResponseWriter() re-wrapped an existing wrapper")
	}
}
