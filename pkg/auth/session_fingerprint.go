package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint returns a stable device identifier for the caller, derived from its IP
// and user agent. It lets auth events from one device be correlated without keeping
// a device table.
func (c ClientInfo) Fingerprint() string {
	if c.IP == "" && c.UserAgent == "" {
		return ""
	}
	data := fmt.Sprintf("%s|%s", c.IP, c.UserAgent)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}

// SameDevice reports whether other comes from the same IP and user agent.
func (c ClientInfo) SameDevice(other ClientInfo) bool {
	return c.Fingerprint() == other.Fingerprint()
}
