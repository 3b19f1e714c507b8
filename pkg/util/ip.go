package util

import (
	"fmt"
	"net/netip"
	"strings"
)

// ParseIPWithMask parses an IP address with CIDR notation
// Returns the address, mask length, and any error
func ParseIPWithMask(cidr string) (netip.Addr, int, error) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return netip.Addr{}, 0, fmt.Errorf("invalid CIDR notation: %s", cidr)
	}
	return prefix.Addr(), prefix.Bits(), nil
}

// IsValidIP checks if a string is a valid IPv4 or IPv6 literal
func IsValidIP(ipStr string) bool {
	_, err := netip.ParseAddr(strings.TrimSpace(ipStr))
	return err == nil
}

// AddressInCIDR reports whether addr lies inside the network cidr.
// Address families must match; an IPv4 address is never inside an IPv6 block.
func AddressInCIDR(addr, cidr string) (bool, error) {
	ip, err := netip.ParseAddr(strings.TrimSpace(addr))
	if err != nil {
		return false, fmt.Errorf("invalid IP address %q: %w", addr, err)
	}
	prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return false, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	return prefix.Masked().Contains(ip.Unmap()), nil
}

// SplitIPMask splits a CIDR notation into IP and mask length
// Returns the IP (without mask) and mask length; -1 when no mask is present
func SplitIPMask(cidr string) (string, int) {
	addr, bits, err := ParseIPWithMask(cidr)
	if err != nil {
		return strings.Split(cidr, "/")[0], -1
	}
	return addr.String(), bits
}
