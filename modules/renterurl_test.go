package modules

import (
	"testing"
)

var (
	invalidURLs = []string{
		// Garbage.
		"",
		"not a url",
		"http://",
		"://missing-scheme",
		// Wrong scheme.
		"ftp://renter.example.com:8081",
		"renter.example.com:8081",
		"//renter.example.com:8081",
	}

	validURLs = []string{
		"http://localhost:8081",
		"http://127.0.0.1:8081",
		"http://[::1]:8081",
		"https://renter.example.com",
		"http://renter.example.com:8081/prefix",
	}
)

// TestRenterURLIsValid checks that renter URL validation admits reachable
// base URLs and rejects garbage.
func TestRenterURLIsValid(t *testing.T) {
	for _, u := range invalidURLs {
		if RenterURL(u).IsValid() {
			t.Errorf("expected %q to be invalid", u)
		}
	}
	for _, u := range validURLs {
		if !RenterURL(u).IsValid() {
			t.Errorf("expected %q to be valid", u)
		}
	}
}

// TestRenterURLIsLocal probes the loopback detection of RenterURL.
func TestRenterURLIsLocal(t *testing.T) {
	locals := []string{
		"http://localhost:8081",
		"http://127.0.0.1:8081",
		"http://[::1]:8081",
	}
	remotes := []string{
		"http://renter.example.com:8081",
		"http://10.0.0.4:8081",
		"",
	}
	for _, u := range locals {
		if !RenterURL(u).IsLocal() {
			t.Errorf("expected %q to be local", u)
		}
	}
	for _, u := range remotes {
		if RenterURL(u).IsLocal() {
			t.Errorf("expected %q to be remote", u)
		}
	}
}

// TestRenterURLEndpoint checks endpoint resolution against base URLs with
// and without trailing slashes.
func TestRenterURLEndpoint(t *testing.T) {
	tests := []struct {
		base string
		path string
		exp  string
	}{
		{"http://localhost:8081", "/store-shard/", "http://localhost:8081/store-shard/"},
		{"http://localhost:8081/", "/store-shard/", "http://localhost:8081/store-shard/"},
		{"http://renter.example.com/prefix/", "/retrieve-shard/", "http://renter.example.com/prefix/retrieve-shard/"},
	}
	for _, test := range tests {
		if got := RenterURL(test.base).Endpoint(test.path); got != test.exp {
			t.Errorf("Endpoint(%q, %q) = %q, expected %q", test.base, test.path, got, test.exp)
		}
	}
}
