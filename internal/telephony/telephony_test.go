package telephony

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwilioCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC1/Calls.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC1", user)
		assert.Equal(t, "tok", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+919876543210", r.PostForm.Get("To"))
		assert.Equal(t, "+15550001111", r.PostForm.Get("From"))
		assert.Equal(t, "30", r.PostForm.Get("Timeout"))
		assert.Equal(t, "https://x/status", r.PostForm.Get("StatusCallback"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"CA123","status":"queued"}`))
	}))
	defer srv.Close()

	tw := NewTwilio(srv.URL, "AC1", "tok", "+15550001111")
	sid, err := tw.Call(context.Background(), "+919876543210", "https://x/voice", "https://x/status")
	require.NoError(t, err)
	assert.Equal(t, "CA123", sid)
}

func TestTwilioError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	err := NewTwilio(srv.URL, "AC1", "tok", "+1").SendSMS(context.Background(), "bad", "hi")
	assert.ErrorContains(t, err, "Invalid 'To' Phone Number")

	err = NewTwilio(srv.URL, "", "", "").SendSMS(context.Background(), "x", "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"9876543210":       "+919876543210",
		"098765 43210":     "+919876543210",
		"919876543210":     "+919876543210",
		"+1 (555) 000-111": "+1555000111",
		"":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestVerificationPrompt(t *testing.T) {
	out := string(VerificationPrompt("https://x/api/telephony/gather/abc"))
	assert.Contains(t, out, `<Gather numDigits="1" action="https://x/api/telephony/gather/abc" method="POST" timeout="10">`)
	assert.Contains(t, out, "Press 1 to confirm")
	assert.Contains(t, out, `<Redirect method="POST">https://x/api/telephony/gather/abc</Redirect>`)

	msg := string(Message("Thank you."))
	assert.Contains(t, msg, "<Say voice=\"alice\">Thank you.</Say>")
	assert.Contains(t, msg, "<Hangup></Hangup>")
}

func TestValidSignature(t *testing.T) {
	params := url.Values{"Digits": {"1"}, "CallSid": {"CA1"}}
	fullURL := "https://example.com/api/telephony/gather/abc"

	mac := hmac.New(sha1.New, []byte("tok"))
	mac.Write([]byte(fullURL + "CallSidCA1Digits1"))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.True(t, ValidSignature("tok", fullURL, params, sig))
	assert.False(t, ValidSignature("other", fullURL, params, sig))
	assert.False(t, ValidSignature("tok", fullURL, params, ""))
}
