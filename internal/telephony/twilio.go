// Package telephony places verification calls and SMS through Twilio and
// renders the TwiML the call flow needs.
package telephony

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotConfigured is returned when account credentials are missing
var ErrNotConfigured = errors.New("telephony not configured")

// RingTimeoutSeconds is how long a verification call rings before no-answer
const RingTimeoutSeconds = 30

// Gateway places outbound calls and text messages
type Gateway interface {
	// Call dials to and returns the provider call id. voiceURL serves the
	// TwiML prompt; statusURL receives the final call status.
	Call(ctx context.Context, to, voiceURL, statusURL string) (string, error)
	SendSMS(ctx context.Context, to, body string) error
}

type twilioResource struct {
	Sid     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Twilio talks to the REST API with basic auth
type Twilio struct {
	http *resty.Client
	sid  string
	from string
}

// NewTwilio creates a client. baseURL is normally https://api.twilio.com.
func NewTwilio(baseURL, accountSID, authToken, from string) *Twilio {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10*time.Second).
		SetRetryCount(1).
		SetBasicAuth(accountSID, authToken).
		SetHeader("Accept", "application/json")
	return &Twilio{http: client, sid: accountSID, from: from}
}

func (t *Twilio) post(ctx context.Context, resource string, form map[string]string) (*twilioResource, error) {
	if t.sid == "" || t.from == "" {
		return nil, ErrNotConfigured
	}
	var out twilioResource
	resp, err := t.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/%s.json", t.sid, resource))
	if err != nil {
		return nil, fmt.Errorf("twilio %s: %w", resource, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("twilio %s: %d %s", resource, out.Code, out.Message)
	}
	return &out, nil
}

// Call places a verification call
func (t *Twilio) Call(ctx context.Context, to, voiceURL, statusURL string) (string, error) {
	out, err := t.post(ctx, "Calls", map[string]string{
		"To":                   to,
		"From":                 t.from,
		"Url":                  voiceURL,
		"Method":               "POST",
		"StatusCallback":       statusURL,
		"StatusCallbackMethod": "POST",
		"Timeout":              fmt.Sprint(RingTimeoutSeconds),
	})
	if err != nil {
		return "", err
	}
	return out.Sid, nil
}

// SendSMS sends a text message
func (t *Twilio) SendSMS(ctx context.Context, to, body string) error {
	_, err := t.post(ctx, "Messages", map[string]string{
		"To":   to,
		"From": t.from,
		"Body": body,
	})
	return err
}

// NormalizePhone converts local ten-digit numbers to E.164 with the +91
// country code. Numbers that already carry a country code are kept.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	switch {
	case d == "":
		return ""
	case strings.HasPrefix(raw, "+"):
		return "+" + d
	case len(d) == 10:
		return "+91" + d
	case len(d) == 11 && d[0] == '0':
		return "+91" + d[1:]
	case len(d) == 12 && strings.HasPrefix(d, "91"):
		return "+" + d
	}
	return "+" + d
}
