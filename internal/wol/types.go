// Package wol handles Wake-on-WLAN magic packets: building them, sending
// them, and listening for them so a suspended stack can be woken remotely.
package wol

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

const (
	// PacketSize is 6 bytes of 0xFF followed by 16 copies of the MAC
	PacketSize = 6 + 16*6
	// DefaultPort is the discard port commonly used for magic packets
	DefaultPort = 9
)

var hexMAC = regexp.MustCompile("^[0-9A-Fa-f]{12}$")

// ValidateMAC validates a MAC address format
func ValidateMAC(mac string) error {
	cleaned := strings.ReplaceAll(mac, ":", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")

	if len(cleaned) != 12 {
		return fmt.Errorf("invalid MAC address length: expected 12 hex digits, got %d", len(cleaned))
	}
	if !hexMAC.MatchString(cleaned) {
		return fmt.Errorf("invalid MAC address format: must contain only hex digits")
	}
	return nil
}

// NormalizeMAC normalizes a MAC address to colon-separated format (AA:BB:CC:DD:EE:FF)
func NormalizeMAC(mac string) (string, error) {
	if err := ValidateMAC(mac); err != nil {
		return "", err
	}

	cleaned := strings.ReplaceAll(mac, ":", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ToUpper(cleaned)

	parts := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		parts = append(parts, cleaned[i:i+2])
	}
	return strings.Join(parts, ":"), nil
}

// ParseMAC parses a MAC address string into a net.HardwareAddr
func ParseMAC(mac string) (net.HardwareAddr, error) {
	normalized, err := NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}
	return net.ParseMAC(normalized)
}
