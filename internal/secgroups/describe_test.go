package secgroups

import "testing"

func TestDescribeRule(t *testing.T) {
	p := Port
	tests := []struct {
		name     string
		protocol string
		from, to *int32
		source   string
		want     string
	}{
		{"ssh", "tcp", p(22), p(22), "10.0.0.0/16", "SSH | TCP | 22 | 10.0.0.0/16"},
		{"http", "tcp", p(80), p(80), "0.0.0.0/0", "HTTP | TCP | 80 | 0.0.0.0/0"},
		{"https", "tcp", p(443), p(443), "10.0.0.0/16", "HTTPS | TCP | 443 | 10.0.0.0/16"},
		{"custom tcp single", "tcp", p(8990), p(8990), "10.0.68.248/32", "Custom TCP | TCP | 8990 | 10.0.68.248/32"},
		{"custom tcp range", "tcp", p(8000), p(8100), "10.0.0.0/8", "Custom TCP | TCP | 8000 - 8100 | 10.0.0.0/8"},
		{"udp", "udp", p(53), p(53), "10.0.0.2/32", "UDP | UDP | 53 | 10.0.0.2/32"},
		{"all traffic", "-1", p(-1), p(-1), "0.0.0.0/0", "-1 | -1 | N/A | 0.0.0.0/0"},
		{"negative from", "tcp", p(-1), p(5), "0.0.0.0/0", "Custom TCP | TCP | N/A | 0.0.0.0/0"},
		{"absent ports", "udp", nil, nil, "0.0.0.0/0", "UDP | UDP | N/A | 0.0.0.0/0"},
		{"icmp all", "icmp", p(-1), p(-1), "0.0.0.0/0", "Custom ICMP - IPv4 | ICMP | All | 0.0.0.0/0"},
		{"icmp unreachable", "icmp", p(3), p(-1), "0.0.0.0/0", "All ICMP - IPv4 | Destination Unreachable | All | 0.0.0.0/0"},
		{"icmp source quench", "icmp", p(4), p(-1), "0.0.0.0/0", "All ICMP - IPv4 | Source Quench | N/A | 0.0.0.0/0"},
		{"icmp echo", "icmp", p(8), p(-1), "0.0.0.0/0", "All ICMP - IPv4 | Echo Request | N/A | 0.0.0.0/0"},
		{"icmp time exceeded", "icmp", p(11), p(-1), "0.0.0.0/0", "All ICMP - IPv4 | Time Exceeded | All | 0.0.0.0/0"},
		{"icmp other code", "icmp", p(5), p(-1), "0.0.0.0/0", "All ICMP - IPv4 | ICMP | 5 | 0.0.0.0/0"},
		{"icmp with to port", "icmp", p(8), p(0), "0.0.0.0/0", "ICMP | ICMP | 8 - 0 | 0.0.0.0/0"},
		{"missing source", "tcp", p(22), p(22), "", "SSH | TCP | 22 | N/A"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DescribeRule(tc.protocol, tc.from, tc.to, tc.source); got != tc.want {
				t.Errorf("DescribeRule() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDescribe_BothShapes(t *testing.T) {
	existing := ExistingRule{
		ID: "sgr-03d1404ed170ba21f", Protocol: "tcp", FromPort: Port(443), ToPort: Port(443),
		CidrIPv4: "10.0.0.0/16", Description: "allows inbound traffic on tcp port 443",
	}
	desired := DesiredRule{
		Protocol: "tcp", FromPort: Port(443), ToPort: Port(443),
		IPRanges: []IPRange{{CIDR: "10.0.0.0/16", Description: "different"}},
	}
	if existing.Describe() != desired.Describe() {
		t.Errorf("existing %q != desired %q", existing.Describe(), desired.Describe())
	}

	peer := ExistingRule{Protocol: "tcp", FromPort: Port(5432), ToPort: Port(5432), ReferencedGroupID: "sg-peer"}
	if got, want := peer.Describe(), "Custom TCP | TCP | 5432 | sg-peer"; got != want {
		t.Errorf("peer Describe() = %q, want %q", got, want)
	}

	if got, want := (DesiredRule{Protocol: "udp", FromPort: Port(1), ToPort: Port(2)}).Describe(), "UDP | UDP | 1 - 2 | N/A"; got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
}
