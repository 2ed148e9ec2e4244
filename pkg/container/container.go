// Package container produces placeholder container/service endpoint
// metadata. Per spec.md's Non-goals, stepflow never spawns a container —
// a job's `services`/`container` declarations only need to resolve to a
// stable URL/host/port triple so expressions like
// `${{ containers.db.port }}` have something to read.
//
// The URI-scheme parsing technique here (splitting a "scheme://host"
// reference apart, defaulting an unrecognized form) is adapted from
// github.com/nektos/act's pkg/container/util.go (isDockerHostURI /
// GetSocketAndHost), stripped of the actual Docker-socket dialing since
// no daemon is ever contacted.
package container

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"strings"
)

// Spec is a job or service container declaration (spec.md §6.1's
// `services`/`container` shape; only the fields expressions can observe
// are modeled).
type Spec struct {
	Name  string
	Image string
	Ports []string
}

// Info is what `${{ containers.<N>.{url|host|port} }}` resolves against
// (spec.md §4.B).
type Info struct {
	URL  string
	Host string
	Port int
}

// Resolve derives deterministic placeholder endpoint metadata for a
// container spec: the same image+name always resolves to the same
// synthetic port, so repeated runs are reproducible (spec.md §5's
// determinism contract extends to this placeholder data).
func Resolve(spec Spec) Info {
	host := "localhost"
	port := derivePort(spec)
	scheme := "tcp"
	if idx := strings.Index(spec.Image, "://"); idx >= 0 {
		scheme = spec.Image[:idx]
	}
	return Info{
		URL:  fmt.Sprintf("%s://%s:%d", scheme, host, port),
		Host: host,
		Port: port,
	}
}

// derivePort hashes the spec's identity into the ephemeral port range
// (1024-65535), favoring an explicitly declared port mapping when one is
// present.
func derivePort(spec Spec) int {
	for _, p := range spec.Ports {
		if hostPort, ok := parseHostPort(p); ok {
			return hostPort
		}
	}
	sum := sha1.Sum([]byte(spec.Name + "|" + spec.Image))
	n := binary.BigEndian.Uint16(sum[:2])
	return 1024 + int(n)%(65536-1024)
}

// parseHostPort extracts the host-side port from a "host:container" or
// bare "port" mapping string, mirroring the left-hand-side-is-host-port
// convention Docker port mappings use.
func parseHostPort(mapping string) (int, bool) {
	parts := strings.SplitN(mapping, ":", 2)
	var port int
	if _, err := fmt.Sscanf(parts[0], "%d", &port); err != nil {
		return 0, false
	}
	return port, true
}
