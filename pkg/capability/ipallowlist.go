package capability

import "net"

// ipAllowed reports whether remoteIP matches one of allowlist's entries,
// each either a bare IP or a CIDR block. An empty allowlist permits any
// origin — allowlisting is opt-in per key.
func ipAllowed(remoteIP string, allowlist []string) bool {
	if len(allowlist) == 0 {
		return true
	}
	ip := net.ParseIP(remoteIP)
	if ip == nil {
		return false
	}
	for _, entry := range allowlist {
		if _, cidr, err := net.ParseCIDR(entry); err == nil {
			if cidr.Contains(ip) {
				return true
			}
			continue
		}
		if entryIP := net.ParseIP(entry); entryIP != nil && entryIP.Equal(ip) {
			return true
		}
	}
	return false
}
