package lib

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateReceiptNumber generates a receipt number in the format: RC-<order>-XXXX
// where <order> is the first block of the order id and XXXX a random suffix.
func GenerateReceiptNumber(orderId uuid.UUID) string {
	// Use a local rand.Source + rand.Rand for thread safety
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 4

	randomPart := make([]byte, length)
	for i := range randomPart {
		randomPart[i] = chars[r.Intn(len(chars))]
	}

	prefix := strings.ToUpper(strings.SplitN(orderId.String(), "-", 2)[0])
	return fmt.Sprintf("RC-%s-%s", prefix, string(randomPart))
}
