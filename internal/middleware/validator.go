package middleware

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Input validation and sanitization utilities

var (
	// reverse-DNS identifiers: android package names, iOS bundle ids
	appIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)+$`)
	// agent keys look like agent/<organization>/<name>
	agentKeyPattern = regexp.MustCompile(`^agent/[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)
)

// ValidateURL validates link targets. Internal hosts are allowed: scanning
// them is the point of a local run.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (allowed: http, https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// ValidateMethod accepts an empty method (GET is implied) or a token of letters.
func ValidateMethod(method string) error {
	for _, r := range method {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("invalid HTTP method: %q", method)
		}
	}
	return nil
}

// ValidateIPRange checks a host and optional prefix length.
func ValidateIPRange(host, mask string) error {
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("invalid IP address: %q", host)
	}
	if mask == "" {
		return nil
	}
	bits := 32
	if ip.To4() == nil {
		bits = 128
	}
	n, err := strconv.Atoi(mask)
	if err != nil || n < 0 || n > bits {
		return fmt.Errorf("invalid mask %q for %s", mask, host)
	}
	return nil
}

// ValidateAppID validates android package names and iOS bundle ids.
func ValidateAppID(id string) error {
	if !appIDPattern.MatchString(id) {
		return fmt.Errorf("invalid application identifier: %q", id)
	}
	return nil
}

// ValidateAgentKey validates agent keys such as agent/ostorlab/nmap.
func ValidateAgentKey(key string) error {
	if !agentKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid agent key: %q", key)
	}
	return nil
}

// ValidatePath validates file paths
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	// Block dangerous patterns
	dangerous := []string{"$(", "`", "\x00", "\n", "\r"}
	for _, d := range dangerous {
		if strings.Contains(path, d) {
			return fmt.Errorf("invalid characters in path")
		}
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove control characters (null bytes included)
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateScanID parses a scan id taken from a URL.
func ValidateScanID(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("scan ID cannot be empty")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid scan ID format")
	}
	return id, nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidatePage validates the page number
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
