package utils

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	BackupCodeCount = 8
	backupCodeBytes = 4

	totpPeriod = 30
	// totpSkew accepts two steps either side of now.
	totpSkew       = 2
	totpSecretSize = 20
	qrCodeSize     = 200
)

func GenerateMFASecret(issuer, accountName string) (*otp.Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		SecretSize:  totpSecretSize,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}
	return key, nil
}

// VerifyMFAToken checks token against secret at now, tolerating ±2 periods of drift.
func VerifyMFAToken(token, secret string, now time.Time) bool {
	token = strings.TrimSpace(token)
	if token == "" || secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(token, secret, now.UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// GenerateMFAToken returns the code valid at t. Used by tests and tooling.
func GenerateMFAToken(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t.UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}

// GenerateBackupCodes returns n codes of 8 upper-case hex characters.
func GenerateBackupCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	buf := make([]byte, backupCodeBytes)
	for len(codes) < n {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate backup code: %w", err)
		}
		code := strings.ToUpper(hex.EncodeToString(buf))
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

// HashBackupCode normalizes the code so lookups are case-insensitive.
func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(strings.ToUpper(strings.TrimSpace(code))))
	return hex.EncodeToString(sum[:])
}

// QRCodeDataURL renders the key's otpauth URL as a PNG data URL.
func QRCodeDataURL(key *otp.Key) (string, error) {
	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
