package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Transaction represents a single purchase recorded for a user.
// Transactions are immutable once written to the log.
type Transaction struct {
	Timestamp time.Time
	ID        string
	UserID    string
	Merchant  string
	Category  string
	ItemText  string // Normalized text used for embeddings and similarity search
	Hash      string
	Amount    float64
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%.2f:%s",
		t.UserID,
		t.Timestamp.UTC().Format(time.RFC3339Nano),
		t.Amount,
		MerchantKey(t.Merchant))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// EmbeddingText returns the text that represents this transaction in vector space.
func (t *Transaction) EmbeddingText() string {
	if t.ItemText != "" {
		return t.ItemText
	}
	return NormalizeItemText(t.Merchant + " " + t.Category)
}

// MerchantKey folds a merchant name into the form used for grouping and lookups.
func MerchantKey(merchant string) string {
	return strings.ToLower(strings.Join(strings.Fields(merchant), " "))
}

// NormalizeItemText lower-cases text, drops punctuation and collapses whitespace.
func NormalizeItemText(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}
