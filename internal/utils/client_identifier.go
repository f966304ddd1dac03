package utils

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// PlatformType enumerates how the client is connecting.
type PlatformType int

const (
	PlatformWeb PlatformType = iota
	PlatformAndroid
	PlatformIOS
)

func (p PlatformType) String() string {
	switch p {
	case PlatformWeb:
		return "web"
	case PlatformAndroid:
		return "android"
	case PlatformIOS:
		return "ios"
	default:
		return "unknown"
	}
}

// ParsePlatform converts "web", "android" or "ios" to the enum.
func ParsePlatform(s string) (PlatformType, error) {
	switch s {
	case "web":
		return PlatformWeb, nil
	case "android":
		return PlatformAndroid, nil
	case "ios":
		return PlatformIOS, nil
	default:
		return -1, fmt.Errorf("invalid platform: %q", s)
	}
}

func IsMobile(platform PlatformType) bool {
	return platform == PlatformAndroid || platform == PlatformIOS
}

type ClientIDType int

const (
	ClientIDTypeIP ClientIDType = iota
	ClientIDTypeDeviceID
)

func (c ClientIDType) String() string {
	switch c {
	case ClientIDTypeIP:
		return "IP"
	case ClientIDTypeDeviceID:
		return "DEVICE_ID"
	default:
		return "UNKNOWN"
	}
}

// ClientIdentifier is either an IP address (web) or a device ID (mobile).
// Rate limit keys and session token bindings are derived from it.
type ClientIdentifier struct {
	Type  ClientIDType
	Value string
}

// GetClientPlatform reads the "X-Platform" header. Defaults to web.
func GetClientPlatform(r *http.Request) PlatformType {
	raw := strings.ToLower(r.Header.Get("X-Platform"))
	if raw == "" {
		return PlatformWeb
	}
	if p, err := ParsePlatform(raw); err == nil {
		return p
	}
	return PlatformWeb
}

// GetClientIdentifier returns the device ID for mobile clients and the best
// guess at the caller IP otherwise.
func GetClientIdentifier(r *http.Request, platform PlatformType) ClientIdentifier {
	if IsMobile(platform) {
		return ClientIdentifier{Type: ClientIDTypeDeviceID, Value: r.Header.Get("X-Device-ID")}
	}
	return ClientIdentifier{Type: ClientIDTypeIP, Value: detectIP(r)}
}

func detectIP(r *http.Request) string {
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		for _, ip := range strings.Split(forwardedFor, ",") {
			if cleanIP := strings.TrimSpace(ip); isValidIP(cleanIP) {
				return cleanIP
			}
		}
	}

	for _, h := range []string{"CF-Connecting-IP", "X-Real-IP"} {
		if v := r.Header.Get(h); v != "" && isValidIP(v) {
			return v
		}
	}

	if forwarded := r.Header.Get("Forwarded"); forwarded != "" {
		for _, part := range strings.Split(forwarded, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "for=") {
				maybeIP := strings.Trim(strings.TrimPrefix(part, "for="), "\"")
				if isValidIP(maybeIP) {
					return maybeIP
				}
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && isValidIP(ip) {
		return ip
	}
	return ""
}

func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
