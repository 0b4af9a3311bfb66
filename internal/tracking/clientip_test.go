package tracking

import "testing"

func TestClientIP(t *testing.T) {
	cases := []struct {
		name         string
		forwardedFor string
		remoteAddr   string
		want         string
	}{
		{"forwarded single", "203.0.113.9", "10.0.0.1:4312", "203.0.113.9"},
		{"forwarded chain takes first", "203.0.113.9, 10.0.0.1, 10.0.0.2", "10.0.0.1:4312", "203.0.113.9"},
		{"forwarded with spaces", "  203.0.113.9 , 10.0.0.1", "10.0.0.1:4312", "203.0.113.9"},
		{"remote addr with port", "", "198.51.100.7:55123", "198.51.100.7"},
		{"remote addr ipv6", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"remote addr without port", "", "198.51.100.7", "198.51.100.7"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClientIP(tc.forwardedFor, tc.remoteAddr)
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestValidIP(t *testing.T) {
	valid := []string{"127.0.0.1", "203.0.113.9", "2001:db8::1", "::1"}
	for _, ip := range valid {
		if !ValidIP(ip) {
			t.Errorf("expected %q to be valid", ip)
		}
	}

	invalid := []string{"", "localhost", "999.1.1.1", "203.0.113", "not-an-ip"}
	for _, ip := range invalid {
		if ValidIP(ip) {
			t.Errorf("expected %q to be invalid", ip)
		}
	}
}
