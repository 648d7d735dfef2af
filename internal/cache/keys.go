package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

func ExportStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("export:%s", jobID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

// SearchKey identifies one search request for result caching. The query and
// filters are hashed so long queries stay within key-size limits.
func SearchKey(query, language, category string, topK int) string {
	h := sha256.Sum256([]byte(strings.Join([]string{
		query, language, category, strconv.Itoa(topK),
	}, "\x00")))
	return fmt.Sprintf("kb:search:%s", hex.EncodeToString(h[:16]))
}
