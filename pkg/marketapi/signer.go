package marketapi

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Authentication header names expected by the remote service.
const (
	HeaderKey       = "Key"
	HeaderTimestamp = "Timestamp"
	HeaderHMAC      = "HMAC"
)

// Pair is one signed key/value. Repeated keys are allowed and keep their relative order.
type Pair struct {
	Key   string
	Value string
}

// AuthHeaders are derived per request and never reused.
type AuthHeaders struct {
	Key       string
	Timestamp string
	HMAC      string
}

// Apply sets the three authentication headers on h.
func (a AuthHeaders) Apply(h http.Header) {
	h.Set(HeaderKey, a.Key)
	h.Set(HeaderTimestamp, a.Timestamp)
	h.Set(HeaderHMAC, a.HMAC)
}

// Sign computes the authentication headers for payload.
//
// The signed message is the form-encoded, key-sorted union of payload and the injected Key and
// Timestamp fields; the injected values replace any payload fields of the same name. The MAC is
// HMAC-SHA512 keyed with the raw private key, rendered as lowercase hex.
func Sign(payload []Pair, creds Credentials, now time.Time) AuthHeaders {
	ts := strconv.FormatInt(now.Unix(), 10)
	msg := canonicalize(payload, creds.PublicKey, ts)

	mac := hmac.New(sha512.New, []byte(creds.PrivateKey))
	mac.Write([]byte(msg))

	return AuthHeaders{
		Key:       creds.PublicKey,
		Timestamp: ts,
		HMAC:      hex.EncodeToString(mac.Sum(nil)),
	}
}

// SigningString returns the exact message Sign authenticates. Useful when chasing 403s.
func SigningString(payload []Pair, creds Credentials, now time.Time) string {
	return canonicalize(payload, creds.PublicKey, strconv.FormatInt(now.Unix(), 10))
}

func canonicalize(payload []Pair, publicKey, timestamp string) string {
	set := make([]Pair, 0, len(payload)+2)
	for _, p := range payload {
		if p.Key == HeaderKey || p.Key == HeaderTimestamp {
			continue
		}
		set = append(set, p)
	}
	set = append(set, Pair{HeaderKey, publicKey}, Pair{HeaderTimestamp, timestamp})

	// Go string comparison is byte-wise; stability keeps repeated keys in transmitted order.
	sort.SliceStable(set, func(i, j int) bool { return set[i].Key < set[j].Key })

	var sb strings.Builder
	for i, p := range set {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	return sb.String()
}
