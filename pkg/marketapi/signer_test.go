package marketapi

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCreds = Credentials{PublicKey: "PK1", PrivateKey: "SECRET"}
	testNow   = time.Unix(1700000000, 0)
)

const (
	// HMAC-SHA512("SECRET", "Key=PK1&Timestamp=1700000000&amount=100&outcome=123")
	vectorOutcomeAmount = "0c6e05a9445b57172788cac4739de34a921cd68cec5dc1ef005d0f0fbf06070ba468a00d39da0628b995075e5b9ad6b5729b1f03e1e20a33496415039b5682ac"
	// HMAC-SHA512("SECRET", "Key=PK1&Timestamp=1700000000&outcome=5")
	vectorOutcomeOnly = "120bc79954629d00c01bdc56fb874feeb0526b571abb731675fbb3f12d624292d9bf8373c93b8f1e6ce505ea336561d5e7d641f9276c9e7ec6340a0b7e6ea5bf"
)

func TestSign_KnownVector(t *testing.T) {
	payload := []Pair{{"outcome", "123"}, {"amount", "100"}}

	got := Sign(payload, testCreds, testNow)

	assert.Equal(t, "PK1", got.Key)
	assert.Equal(t, "1700000000", got.Timestamp)
	assert.Equal(t, vectorOutcomeAmount, got.HMAC)
	assert.Equal(t, "Key=PK1&Timestamp=1700000000&amount=100&outcome=123", SigningString(payload, testCreds, testNow))
}

func TestSign_Deterministic(t *testing.T) {
	payload := []Pair{{"outcome", "123"}, {"amount", "100"}}

	first := Sign(payload, testCreds, testNow)
	second := Sign(payload, testCreds, testNow)

	assert.Equal(t, first, second)
	assert.Equal(t, []Pair{{"outcome", "123"}, {"amount", "100"}}, payload, "payload must not be mutated")
}

func TestSign_OrderIndependent(t *testing.T) {
	ab := Sign([]Pair{{"a", "1"}, {"b", "2"}, {"c", "x y"}}, testCreds, testNow)
	ba := Sign([]Pair{{"c", "x y"}, {"b", "2"}, {"a", "1"}}, testCreds, testNow)

	assert.Equal(t, ab.HMAC, ba.HMAC)
	assert.Equal(t, ab.Timestamp, ba.Timestamp)
}

func TestSign_InjectedFieldsWin(t *testing.T) {
	payload := []Pair{{"Key", "attacker"}, {"outcome", "5"}, {"Timestamp", "1"}}

	got := Sign(payload, testCreds, testNow)
	msg := SigningString(payload, testCreds, testNow)

	assert.Equal(t, "PK1", got.Key)
	assert.Equal(t, vectorOutcomeOnly, got.HMAC)
	assert.NotContains(t, msg, "attacker")
	assert.Equal(t, "Key=PK1&Timestamp=1700000000&outcome=5", msg)
}

func TestSign_TimestampIsFloorSeconds(t *testing.T) {
	got := Sign(nil, testCreds, time.Unix(1700000000, 999_999_999))
	assert.Equal(t, "1700000000", got.Timestamp)
}

func TestSign_FormEncoding(t *testing.T) {
	msg := SigningString([]Pair{{"q", "a b&c"}, {"name", "ü"}}, testCreds, testNow)
	assert.Equal(t, "Key=PK1&Timestamp=1700000000&name=%C3%BC&q=a+b%26c", msg)
}

func TestSign_ByteWiseKeyOrder(t *testing.T) {
	msg := SigningString([]Pair{{"b", "1"}, {"B", "2"}, {"a", "3"}}, testCreds, testNow)
	// Uppercase sorts before lowercase.
	assert.Equal(t, "B=2&Key=PK1&Timestamp=1700000000&a=3&b=1", msg)
}

func TestSign_RepeatedKeysKeepOrder(t *testing.T) {
	msg := SigningString([]Pair{{"tag", "z"}, {"id", "1"}, {"tag", "a"}}, testCreds, testNow)
	assert.Equal(t, "Key=PK1&Timestamp=1700000000&id=1&tag=z&tag=a", msg)
}

func TestSign_HexFormat(t *testing.T) {
	got := Sign([]Pair{{"x", "y"}}, testCreds, testNow)
	require.Len(t, got.HMAC, 128)
	assert.Equal(t, strings.ToLower(got.HMAC), got.HMAC)
}

func TestAuthHeaders_Apply(t *testing.T) {
	h := make(http.Header)
	AuthHeaders{Key: "PK1", Timestamp: "1", HMAC: "abc"}.Apply(h)

	assert.Equal(t, "PK1", h.Get(HeaderKey))
	assert.Equal(t, "1", h.Get(HeaderTimestamp))
	assert.Equal(t, "abc", h.Get(HeaderHMAC))
}
