package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptOperatorKey("0x"+testKeyHex, "hunter2")
	require.NoError(t, err)
	assert.Contains(t, string(blob), keyFileFormat)

	got, err := DecryptOperatorKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptOperatorKey(testKeyHex, "correct")
	require.NoError(t, err)

	_, err = DecryptOperatorKey(blob, "wrong")
	assert.Error(t, err)
}

func TestDecryptRejectsForeignBlob(t *testing.T) {
	_, err := DecryptOperatorKey([]byte(`{"format":"something-else","version":1}`), "pw")
	assert.Error(t, err)
}

func TestEncryptRejectsBadKey(t *testing.T) {
	_, err := EncryptOperatorKey("not-hex", "pw")
	assert.Error(t, err)

	_, err = EncryptOperatorKey("abcd", "pw") // too short
	assert.Error(t, err)

	_, err = EncryptOperatorKey(testKeyHex, "")
	assert.Error(t, err)
}

func TestLoadOperatorKeyPrefersRawKey(t *testing.T) {
	got, err := LoadOperatorKey(KeyConfig{RawPrivateKey: "0x" + strings.ToUpper(testKeyHex)})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got, "key is normalized to lowercase without prefix")
}

func TestLoadOperatorKeyRejectsWrongLength(t *testing.T) {
	_, err := LoadOperatorKey(KeyConfig{RawPrivateKey: "abcd"})
	assert.Error(t, err)
}

func TestLoadOperatorKeyFromEncryptedFile(t *testing.T) {
	blob, err := EncryptOperatorKey(testKeyHex, "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "operator.key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err := LoadOperatorKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestLoadOperatorKeyNoSource(t *testing.T) {
	_, err := LoadOperatorKey(KeyConfig{})
	assert.Error(t, err)
}
