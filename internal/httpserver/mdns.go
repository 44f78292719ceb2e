package httpserver

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"strconv"
)

// ServiceType is the DNS-SD service the daemon advertises.
const ServiceType = "_qiandao._tcp"

// startMDNS advertises the trigger API on the local network by delegating to
// the system responder: dns-sd on macOS, avahi-publish-service on Linux.
// The returned function withdraws the registration.
func startMDNS(port int, version string) func() {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "qiandao"
	}
	txt := []string{
		fmt.Sprintf("version=%s", version),
		"run=/api/run",
		"events=/ws/events",
	}

	var cmd *exec.Cmd
	if path, err := exec.LookPath("dns-sd"); err == nil {
		cmd = exec.Command(path, append([]string{"-R", hostname, ServiceType, "local", strconv.Itoa(port)}, txt...)...)
	} else if path, err := exec.LookPath("avahi-publish-service"); err == nil {
		cmd = exec.Command(path, append([]string{hostname, ServiceType, strconv.Itoa(port)}, txt...)...)
	} else {
		log.Printf("[mDNS] no dns-sd or avahi-publish-service found; skipping registration")
		return func() {}
	}

	if err := cmd.Start(); err != nil {
		log.Printf("[mDNS] failed to start %s: %v", cmd.Path, err)
		return func() {}
	}
	log.Printf("[mDNS] registered '%s.%s.local' on port %d (pid %d)", hostname, ServiceType, port, cmd.Process.Pid)
	return func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		}
	}
}

// parsePort extracts the numeric port from an address like ":8080" or "0.0.0.0:8080".
func parsePort(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(p)
	return port
}
