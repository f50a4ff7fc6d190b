package net

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_tacticalboard._tcp"

// Advertise announces a project server on port. Shut the returned server
// down to stop answering queries.
func Advertise(port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, []string{"TacticalBoard"})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	log.Printf("[NET] Advertising %s on port %d", ServiceType, port)
	return server, nil
}

// Discover browses the local network for project servers and returns their
// host:port addresses. It gives up when ctx is done or after timeout.
func Discover(ctx context.Context, timeout time.Duration) ([]string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan []string, 1)
	go func() {
		var addrs []string
		seen := make(map[string]bool)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			addr := fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port)
			if !seen[addr] {
				seen[addr] = true
				addrs = append(addrs, addr)
			}
		}
		done <- addrs
	}()

	if d, ok := ctx.Deadline(); ok && time.Until(d) < timeout {
		timeout = time.Until(d)
	}
	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	addrs := <-done
	if err != nil {
		return nil, fmt.Errorf("mDNS query failed: %w", err)
	}
	return addrs, nil
}
