package pageinsight

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"
	"time"
)

// ErrBlockedAddress is returned when a page or link resolves to an address
// the analyzer must not contact.
var ErrBlockedAddress = errors.New("address is private or reserved")

// reservedNetworks lists ranges that are globally routable on paper but must
// never be analyzed. Loopback, RFC 1918, ULA, link-local and unspecified
// addresses are caught by netip.Addr itself.
var reservedNetworks = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"),   // shared address space, RFC 6598
	netip.MustParsePrefix("192.0.0.0/24"),    // IETF protocol assignments
	netip.MustParsePrefix("192.0.2.0/24"),    // documentation
	netip.MustParsePrefix("198.18.0.0/15"),   // benchmarking
	netip.MustParsePrefix("198.51.100.0/24"), // documentation
	netip.MustParsePrefix("203.0.113.0/24"),  // documentation
	netip.MustParsePrefix("240.0.0.0/4"),     // reserved, includes broadcast
	netip.MustParsePrefix("64:ff9b::/96"),    // NAT64, would reach IPv4 internals
	netip.MustParsePrefix("2001:db8::/32"),   // documentation
}

// safeDialer dials only public addresses. The address is checked after DNS
// resolution, so a hostname rebinding to an internal address is refused too.
func safeDialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   refuseReserved,
	}
}

func refuseReserved(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrBlockedAddress, address, err)
	}
	if reserved(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ap.Addr())
	}
	return nil
}

func reserved(addr netip.Addr) bool {
	// ::ffff:10.0.0.1 must be judged as 10.0.0.1.
	addr = addr.Unmap()
	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return true
	}
	for _, p := range reservedNetworks {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
