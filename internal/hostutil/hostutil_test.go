package hostutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Empty
		{"", ""},
		{"   ", ""},

		// Full URLs keep their scheme, lose the trailing slash
		{"https://api.powerbi.com/v1.0/myorg", "https://api.powerbi.com/v1.0/myorg"},
		{"https://api.powerbi.com/v1.0/myorg/", "https://api.powerbi.com/v1.0/myorg"},
		{"http://localhost:3000/", "http://localhost:3000"},

		// Loopback hosts → http
		{"localhost:3000", "http://localhost:3000"},
		{"127.0.0.1:8080/v1.0/myorg", "http://127.0.0.1:8080/v1.0/myorg"},
		{"[::1]:3000", "http://[::1]:3000"},
		{"mock.localhost", "http://mock.localhost"},

		// Everything else → https
		{"api.powerbi.com/v1.0/myorg", "https://api.powerbi.com/v1.0/myorg"},
		{"app.powerbi.com/reportEmbed", "https://app.powerbi.com/reportEmbed"},
		{"localhost.example.com", "https://localhost.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeBaseURL(tt.input))
		})
	}
}

func TestRequireSecureURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		// HTTPS always ok
		{"https://api.powerbi.com/v1.0/myorg", false},
		{"", false},

		// HTTP loopback ok (local mocks)
		{"http://localhost:3001", false},
		{"http://127.0.0.1:8080/v1.0/myorg", false},
		{"http://[::1]:3000", false},
		{"http://mock.localhost", false},

		// HTTP elsewhere rejected
		{"http://api.powerbi.com/v1.0/myorg", true},
		{"http://192.168.1.10:3000", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := RequireSecureURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "insecure http://")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsLoopback(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		// Localhost
		{"localhost", true},
		{"localhost:3000", true},

		// .localhost subdomains (RFC 6761)
		{"app.localhost", true},
		{"foo.bar.localhost:8080", true},

		// IPv4 loopback block
		{"127.0.0.1", true},
		{"127.0.0.1:3000", true},
		{"127.0.0.2", true},

		// IPv6 loopback
		{"::1", true},
		{"[::1]", true},
		{"[::1]:3000", true},

		// Every interface or another machine
		{"", false},
		{"0.0.0.0", false},
		{"0.0.0.0:3000", false},
		{"[::]:3000", false},
		{"192.168.1.1", false},
		{"example.com", false},
		{"localhost.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLoopback(tt.input))
		})
	}
}
