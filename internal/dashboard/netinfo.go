package dashboard

import (
	"fmt"
	"net"
)

const loopback = "127.0.0.1"

// LocalIP returns the address this machine uses to reach the network,
// or the loopback address when there is none. Dialing UDP sends nothing.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return loopback
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.IsUnspecified() {
		return loopback
	}
	return addr.IP.String()
}

// ServerURL is the address shown to the user. Wildcard hosts are replaced
// with the LAN address so the URL also works from other devices.
func ServerURL(host string, port int) string {
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		host = LocalIP()
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, fmt.Sprint(port)))
}
