package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	receiptPrefix    = "RCP-"
	receiptTokenSize = 8
	upperAlnum       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateID returns prefix followed by length random uppercase alphanumerics.
func GenerateID(prefix string, length int) string {
	var b strings.Builder
	b.Grow(len(prefix) + length)
	b.WriteString(prefix)

	max := big.NewInt(int64(len(upperAlnum)))
	for i := 0; i < length; i++ {
		num, _ := rand.Int(rand.Reader, max)
		b.WriteByte(upperAlnum[num.Int64()])
	}
	return b.String()
}

// GenerateReceiptID mints a receipt identifier such as RCP-7Q2K9XA1.
func GenerateReceiptID() string {
	return GenerateID(receiptPrefix, receiptTokenSize)
}

// ValidateReceiptID validates the receipt ID format
func ValidateReceiptID(receiptID string) bool {
	if len(receiptID) != len(receiptPrefix)+receiptTokenSize || !strings.HasPrefix(receiptID, receiptPrefix) {
		return false
	}
	for _, r := range receiptID[len(receiptPrefix):] {
		if !strings.ContainsRune(upperAlnum, r) {
			return false
		}
	}
	return true
}
