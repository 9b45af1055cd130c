package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strconv"
)

const defaultHashSalt = "split-bot-default-salt"

var hashSalt = defaultHashSalt

// InitHashSalt loads the salt used for hashing identifiers from LOG_HASH_SALT.
func InitHashSalt() {
	if salt := os.Getenv("LOG_HASH_SALT"); salt != "" {
		hashSalt = salt
		return
	}
	Log.Warn().Msg("LOG_HASH_SALT not set, using built-in salt for log hashing")
	hashSalt = defaultHashSalt
}

// InitHashSaltForTesting pins the salt for deterministic tests.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

// HashChatID returns a short, salted hash of a delivery address so chat ids
// never land in logs verbatim.
func HashChatID(chatID int64) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(chatID, 10) + ":" + hashSalt))
	return hex.EncodeToString(sum[:])[:8]
}

// HashUsername hashes a username the same way as HashChatID.
func HashUsername(username string) string {
	sum := sha256.Sum256([]byte("u:" + username + ":" + hashSalt))
	return hex.EncodeToString(sum[:])[:8]
}

// SanitizeText hides free text typed by a user while keeping its length.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}
	return "<" + strconv.Itoa(len(text)) + " chars>"
}
