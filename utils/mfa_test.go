package utils

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyMFAToken_Window(t *testing.T) {
	key, err := GenerateMFASecret("HomeSell Pro", "a@x.com")
	require.NoError(t, err)
	secret := key.Secret()

	now := time.Date(2026, 3, 1, 12, 0, 15, 0, time.UTC)
	for _, step := range []int{-2, -1, 0, 1, 2} {
		code, err := GenerateMFAToken(secret, now.Add(time.Duration(step)*30*time.Second))
		require.NoError(t, err)
		assert.True(t, VerifyMFAToken(code, secret, now), "step %d should be accepted", step)
	}

	for _, step := range []int{-4, -3, 3, 4} {
		code, err := GenerateMFAToken(secret, now.Add(time.Duration(step)*30*time.Second))
		require.NoError(t, err)
		current, _ := GenerateMFAToken(secret, now)
		if code == current {
			continue
		}
		assert.False(t, VerifyMFAToken(code, secret, now), "step %d should be rejected", step)
	}
}

func TestVerifyMFAToken_Garbage(t *testing.T) {
	key, err := GenerateMFASecret("HomeSell Pro", "a@x.com")
	require.NoError(t, err)

	assert.False(t, VerifyMFAToken("", key.Secret(), time.Now()))
	assert.False(t, VerifyMFAToken("abcdef", key.Secret(), time.Now()))
	assert.False(t, VerifyMFAToken("123456", "", time.Now()))
}

func TestGenerateBackupCodes(t *testing.T) {
	codes, err := GenerateBackupCodes(BackupCodeCount)
	require.NoError(t, err)
	require.Len(t, codes, 8)

	re := regexp.MustCompile(`^[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for _, c := range codes {
		assert.Regexp(t, re, c)
		assert.False(t, seen[c], "duplicate code %s", c)
		seen[c] = true
	}
}

func TestHashBackupCode_CaseInsensitive(t *testing.T) {
	assert.Equal(t, HashBackupCode("ABCD1234"), HashBackupCode(" abcd1234 "))
	assert.NotEqual(t, HashBackupCode("ABCD1234"), HashBackupCode("ABCD1235"))
}

func TestQRCodeDataURL(t *testing.T) {
	key, err := GenerateMFASecret("HomeSell Pro", "a@x.com")
	require.NoError(t, err)

	url, err := QRCodeDataURL(key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
	assert.Contains(t, key.URL(), "issuer=HomeSell")
}
