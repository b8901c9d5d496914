package businessflow

import (
	"crypto/rand"
	"math/big"
	"net/url"
	"regexp"
	"strings"
)

const (
	// GeneratedCodeLength is the length of random short codes
	GeneratedCodeLength = 6

	// MaxCustomCodeLength caps customer-chosen aliases
	MaxCustomCodeLength = 50

	// MaxDestinationLength caps destination URLs
	MaxDestinationLength = 2000

	codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var customCodePattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// reservedCodes are path segments that can never be used as short codes
var reservedCodes = map[string]bool{
	"admin":     true,
	"api":       true,
	"www":       true,
	"mail":      true,
	"ftp":       true,
	"localhost": true,
	"dashboard": true,
	"auth":      true,
	"login":     true,
	"signup":    true,
	"analytics": true,
}

// GenerateCode returns a random lowercase base36 code of GeneratedCodeLength characters
func GenerateCode() (string, error) {
	buf := make([]byte, GeneratedCodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// IsReservedCode reports whether code collides with a reserved path segment
func IsReservedCode(code string) bool {
	return reservedCodes[strings.ToLower(code)]
}

// NormalizeCode lowercases and trims a code for storage and lookup
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// ValidateDestination checks that destination is an absolute http(s) URL within the length cap
func ValidateDestination(destination string) error {
	destination = strings.TrimSpace(destination)
	if destination == "" || len(destination) > MaxDestinationLength {
		return ErrInvalidDestination
	}

	parsed, err := url.Parse(destination)
	if err != nil {
		return ErrInvalidDestination
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidDestination
	}
	if parsed.Host == "" {
		return ErrInvalidDestination
	}

	return nil
}

// ValidateCustomCode checks alias syntax and the reserved word list
func ValidateCustomCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" || len(code) > MaxCustomCodeLength {
		return ErrInvalidCustomCode
	}
	if !customCodePattern.MatchString(code) {
		return ErrInvalidCustomCode
	}
	if IsReservedCode(code) {
		return ErrInvalidCustomCode
	}
	return nil
}
