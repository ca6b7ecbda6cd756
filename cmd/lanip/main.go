// lanip prints the local LAN IP address and the URL to open on a phone.
// Cross-platform (macOS, Linux, Windows).
//
// Without a network it prints the loopback address and still exits 0.
//
// Usage: go run ./cmd/lanip
package main

import (
	"context"
	"fmt"

	"github.com/joeblew999/pwaserve/internal/headers"
	"github.com/joeblew999/pwaserve/internal/lanip"
)

func main() {
	ip := lanip.ResolveOrLoopback(context.Background())
	fmt.Printf("🌐 Local IP: %s\n", ip)
	fmt.Printf("📱 Phone URL: %s\n", lanip.URL(ip, headers.Dev.DefaultPort))
}
