package middleware

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/go-authgate/authcascade/internal/util"

	"github.com/gin-gonic/gin"
)

// RemoteUser copies the username asserted in header into the request context
// for the remote_user driver. The header is ignored unless the direct peer
// address is one of trustedProxies (IPs or CIDR ranges).
func RemoteUser(header string, trustedProxies []string) (gin.HandlerFunc, error) {
	prefixes, err := parseTrustedProxies(trustedProxies)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		username := strings.TrimSpace(c.GetHeader(header))
		if username == "" {
			c.Next()
			return
		}

		// Never trust the header from an arbitrary client
		addr, err := netip.ParseAddr(c.RemoteIP())
		if err != nil || !containsAddr(prefixes, addr.Unmap()) {
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(util.WithRemoteUser(c.Request.Context(), username))
		c.Next()
	}, nil
}

func parseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func containsAddr(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
