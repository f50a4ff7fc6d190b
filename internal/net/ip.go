package net

import (
	"log"
	"net"
	"strconv"
	"strings"
)

// JoinScheme prefixes the link a server operator shares with teammates.
const JoinScheme = "tacticalboard://"

// JoinLink builds the link teammates open to reach a server listening on
// host:port. A wildcard host is replaced by this machine's LAN address.
func JoinLink(host string, port int) string {
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = lanAddress()
	}
	return JoinScheme + net.JoinHostPort(host, strconv.Itoa(port))
}

// lanAddress is the first IPv4 address of an interface that is up. Without
// one the link falls back to loopback and only works on this machine.
func lanAddress() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		log.Printf("[NET] Listing interfaces failed: %v", err)
		return "127.0.0.1"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		if ip := firstIPv4(addrs); ip != nil {
			return ip.String()
		}
	}
	log.Println("[NET] No LAN address found, the join link only works locally")
	return "127.0.0.1"
}

// firstIPv4 skips loopback and link-local addresses, which teammates cannot
// reach.
func firstIPv4(addrs []net.Addr) net.IP {
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP.To4()
		if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		return ip
	}
	return nil
}

// ParseJoinLink returns host:port from a tacticalboard:// link.
func ParseJoinLink(link string) (string, bool) {
	if !strings.HasPrefix(link, JoinScheme) {
		return "", false
	}
	addr := strings.TrimSuffix(strings.TrimPrefix(link, JoinScheme), "/")
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return "", false
	}
	return addr, true
}
