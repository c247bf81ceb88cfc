package httpclient

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// GenerateCoalesceKey creates a unique key for request deduplication.
// Key = SHA256(method + URL + sorted query params + body hash)
func GenerateCoalesceKey(method, rawURL string, body []byte) string {
	// Parse URL to normalize and sort query params
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		// Fallback to raw URL if parsing fails
		return hashString(method + rawURL + string(body))
	}

	// Sort query parameters for consistent key generation
	queryParams := parsedURL.Query()
	var sortedParams []string
	for key := range queryParams {
		values := queryParams[key]
		sort.Strings(values)
		for _, v := range values {
			sortedParams = append(sortedParams, key+"="+v)
		}
	}
	sort.Strings(sortedParams)

	// Build normalized URL without query (we'll add sorted params)
	normalizedURL := fmt.Sprintf("%s://%s%s", parsedURL.Scheme, parsedURL.Host, parsedURL.Path)

	// Create key components
	keyParts := []string{
		method,
		normalizedURL,
		strings.Join(sortedParams, "&"),
	}

	// Add body hash if present
	if len(body) > 0 {
		bodyHash := sha256.Sum256(body)
		keyParts = append(keyParts, hex.EncodeToString(bodyHash[:]))
	}

	return hashString(strings.Join(keyParts, "|"))
}

// hashString creates a SHA256 hash of the input string.
func hashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}
