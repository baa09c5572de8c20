package modules

import (
	"net"
	"net/url"
)

// A RenterURL is the base URL a renter's shard server can be reached at.
// Shard endpoints are resolved relative to it.
type RenterURL string

// IsValid returns whether the URL is an absolute http or https URL with a
// host. Renters registering with an invalid URL are rejected, since the
// coordinator would be unable to place shards on them.
func (ru RenterURL) IsValid() bool {
	parsed, err := url.Parse(string(ru))
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}

// Host returns just the hostname of the URL, without the port. The empty
// string is returned if the URL is invalid.
func (ru RenterURL) Host() string {
	parsed, err := url.Parse(string(ru))
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// IsLocal returns true for URLs that point at the machine the coordinator
// itself runs on.
func (ru RenterURL) IsLocal() bool {
	host := ru.Host()
	if host == "" {
		return false
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	return host == "localhost"
}

// Endpoint resolves a shard endpoint path against the base URL. The base is
// used as-is apart from trailing slash normalization, so a renter backed by
// a path prefix keeps its prefix.
func (ru RenterURL) Endpoint(path string) string {
	base := string(ru)
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + path
}
