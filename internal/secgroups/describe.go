package secgroups

import (
	"fmt"
	"strings"
)

// icmpTypes maps an ICMP type code to its display name and port range.
var icmpTypes = map[int32]struct{ name, ports string }{
	3:  {"Destination Unreachable", "All"},
	4:  {"Source Quench", "N/A"},
	8:  {"Echo Request", "N/A"},
	11: {"Time Exceeded", "All"},
}

// DescribeRule renders a rule as "<Type> | <Protocol> | <PortRange> | <Source>".
func DescribeRule(protocol string, from, to *int32, source string) string {
	if source == "" {
		source = "N/A"
	}

	var ruleType, ruleProtocol, portRange string
	switch {
	case protocol == "tcp" && samePort(from, to, 22):
		ruleType, ruleProtocol, portRange = "SSH", "TCP", "22"
	case protocol == "tcp" && samePort(from, to, 80):
		ruleType, ruleProtocol, portRange = "HTTP", "TCP", "80"
	case protocol == "tcp" && samePort(from, to, 443):
		ruleType, ruleProtocol, portRange = "HTTPS", "TCP", "443"
	case protocol == "icmp" && to != nil && *to == -1:
		code := int32(-1)
		if from != nil {
			code = *from
		}
		ruleType = "All ICMP - IPv4"
		if code == -1 {
			ruleType = "Custom ICMP - IPv4"
		}
		if t, ok := icmpTypes[code]; ok {
			ruleProtocol, portRange = t.name, t.ports
		} else {
			ruleProtocol = "ICMP"
			portRange = "All"
			if code >= 0 {
				portRange = fmt.Sprintf("%d", code)
			}
		}
	default:
		ruleProtocol = strings.ToUpper(protocol)
		ruleType = ruleProtocol
		if protocol == "tcp" {
			ruleType = "Custom TCP"
		}
		portRange = describePorts(from, to)
	}
	return fmt.Sprintf("%s | %s | %s | %s", ruleType, ruleProtocol, portRange, source)
}

func samePort(from, to *int32, port int32) bool {
	return from != nil && to != nil && *from == port && *to == port
}

func describePorts(from, to *int32) string {
	if from == nil || to == nil || *from < 0 || *to < 0 {
		return "N/A"
	}
	if *from == *to {
		return fmt.Sprintf("%d", *from)
	}
	return fmt.Sprintf("%d - %d", *from, *to)
}

// Describe renders the rule for display. The description is not included.
func (r ExistingRule) Describe() string {
	source := r.CidrIPv4
	if source == "" {
		source = r.CidrIPv6
	}
	if source == "" {
		source = r.ReferencedGroupID
	}
	return DescribeRule(r.Protocol, r.FromPort, r.ToPort, source)
}

// Describe renders the rule for display using its first IP range.
func (d DesiredRule) Describe() string {
	source := ""
	if len(d.IPRanges) > 0 {
		source = d.IPRanges[0].CIDR
	}
	return DescribeRule(d.Protocol, d.FromPort, d.ToPort, source)
}
