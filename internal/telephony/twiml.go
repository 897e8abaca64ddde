package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"
	"net/url"
	"sort"
	"strings"
)

type say struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

type gather struct {
	NumDigits int    `xml:"numDigits,attr"`
	Action    string `xml:"action,attr"`
	Method    string `xml:"method,attr"`
	Timeout   int    `xml:"timeout,attr"`
	Say       []say  `xml:"Say"`
}

type redirect struct {
	Method string `xml:"method,attr"`
	URL    string `xml:",chardata"`
}

type response struct {
	XMLName  xml.Name  `xml:"Response"`
	Gather   *gather   `xml:"Gather,omitempty"`
	Say      []say     `xml:"Say"`
	Redirect *redirect `xml:"Redirect,omitempty"`
	Hangup   *struct{} `xml:"Hangup,omitempty"`
}

const voice = "alice"

// GatherTimeoutSeconds is how long the caller has to press a digit
const GatherTimeoutSeconds = 10

func render(r response) []byte {
	out, _ := xml.Marshal(r)
	return append([]byte(xml.Header), out...)
}

// VerificationPrompt asks the caller to confirm with 1 or reject with 2.
// Without input the call is redirected to gatherURL with no digits, which
// is treated as a timeout.
func VerificationPrompt(gatherURL string) []byte {
	return render(response{
		Gather: &gather{
			NumDigits: 1,
			Action:    gatherURL,
			Method:    "POST",
			Timeout:   GatherTimeoutSeconds,
			Say: []say{{
				Voice: voice,
				Text: "Hello. We received a civic complaint registered with this phone number. " +
					"Press 1 to confirm the complaint. Press 2 to reject it.",
			}},
		},
		Say:      []say{{Voice: voice, Text: "We did not receive any input."}},
		Redirect: &redirect{Method: "POST", URL: gatherURL},
	})
}

// Message speaks text and hangs up
func Message(text string) []byte {
	return render(response{
		Say:    []say{{Voice: voice, Text: text}},
		Hangup: &struct{}{},
	})
}

// ValidSignature checks X-Twilio-Signature: base64(HMAC-SHA1(authToken,
// fullURL + each POST param name and value sorted by name)).
func ValidSignature(authToken, fullURL string, params url.Values, signature string) bool {
	if signature == "" {
		return false
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
