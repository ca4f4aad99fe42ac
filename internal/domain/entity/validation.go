package entity

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// maxURLLength defines the maximum allowed length for URLs to prevent DoS attacks.
const maxURLLength = 2048

// ValidateRequestURL validates the format of a fetch URL.
// It checks that the URL is well-formed, uses HTTP/HTTPS scheme, and has a valid host.
// When denyPrivate is set, hosts resolving to private or loopback addresses are rejected.
func ValidateRequestURL(rawURL string, denyPrivate bool) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Message: fmt.Sprintf("malformed URL: %v", err)}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	if !denyPrivate {
		return nil
	}

	host := parsedURL.Hostname()
	ips := []net.IP{net.ParseIP(host)}
	if ips[0] == nil {
		resolved, err := net.LookupIP(host)
		if err != nil {
			// Resolution failures surface on the actual request.
			return nil
		}
		ips = resolved
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return &ValidationError{
				Field:   "url",
				Message: "url cannot point to private network",
			}
		}
	}

	return nil
}

// ValidateItem checks that an item carries a usable identity.
func ValidateItem(item Item) error {
	if strings.TrimSpace(item.ID) == "" {
		return &ValidationError{Field: "id", Message: "item id is required"}
	}
	return nil
}

// isPrivateIP checks if an IP address is in a private or restricted range:
// loopback, link-local (including cloud metadata), RFC 1918 and IPv6 ULA.
func isPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	return ip.IsPrivate() || ip.IsUnspecified()
}
