package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kart-commerce/internal/model"
)

// SignatureHeaderName carries the webhook signature.
const SignatureHeaderName = "Stripe-Signature"

const signatureScheme = "v1"

// ComputeSignature returns the hex HMAC-SHA256 of "<timestamp>.<payload>".
func ComputeSignature(payload []byte, secret string, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader builds a "t=<unix>,v1=<hex>" header value for payload.
func SignatureHeader(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,%s=%s", ts, signatureScheme, ComputeSignature(payload, secret, ts))
}

// VerifySignature checks a signature header against payload. A zero tolerance
// disables the timestamp window check. Failures are InvalidSignature errors.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return model.NewInvalidSignatureError("missing signature header")
	}

	var (
		timestamp  int64
		haveTS     bool
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return model.NewInvalidSignatureError("malformed timestamp")
			}
			timestamp, haveTS = ts, true
		case signatureScheme:
			signatures = append(signatures, value)
		}
	}

	if !haveTS {
		return model.NewInvalidSignatureError("missing timestamp")
	}
	if len(signatures) == 0 {
		return model.NewInvalidSignatureError("no v1 signature")
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return model.NewInvalidSignatureError("timestamp outside tolerance")
		}
	}

	expected := []byte(ComputeSignature(payload, secret, timestamp))
	for _, sig := range signatures {
		if hmac.Equal(expected, []byte(sig)) {
			return nil
		}
	}
	return model.NewInvalidSignatureError("signature mismatch")
}
