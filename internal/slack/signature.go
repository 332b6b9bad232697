// Package slack implements the Slack slash-command front-end: request
// signature verification, command parsing, and Block Kit responses.
package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	signatureVersion = "v0"
	maxTimestampAge  = 5 * time.Minute
)

var (
	// ErrTimestampTooOld means the request timestamp is outside the
	// accepted window and the request may be a replay.
	ErrTimestampTooOld = errors.New("request timestamp too old")

	// ErrInvalidSignature means the computed signature does not match
	// the one presented by the caller.
	ErrInvalidSignature = errors.New("invalid signature")
)

// VerifySignature checks that a request was signed by Slack with the
// given signing secret. Slack signs the string "v0:<timestamp>:<body>"
// with HMAC-SHA256 and presents it as "v0=<hex>". The comparison is
// constant time. Requests older than five minutes are rejected before
// any signature work to limit replay.
func VerifySignature(signingSecret, timestamp string, body []byte, signature string, now time.Time) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp header %q", ErrInvalidSignature, timestamp)
	}

	age := now.Sub(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	if age > maxTimestampAge {
		return ErrTimestampTooOld
	}

	mac := hmac.New(sha256.New, []byte(signingSecret))
	fmt.Fprintf(mac, "%s:%s:%s", signatureVersion, timestamp, body)
	expected := signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}

	return nil
}
