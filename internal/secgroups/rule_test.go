package secgroups

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func httpsFrom(cidr, desc string) DesiredRule {
	return DesiredRule{
		Protocol: "tcp", FromPort: Port(443), ToPort: Port(443),
		IPRanges: []IPRange{{CIDR: cidr, Description: desc}},
	}
}

func TestFindRule(t *testing.T) {
	existing := []ExistingRule{
		{ID: "sgr-in", IsEgress: false, Protocol: "tcp", FromPort: Port(443), ToPort: Port(443), CidrIPv4: "10.0.0.0/16", Description: "old text"},
		{ID: "sgr-out", IsEgress: true, Protocol: "tcp", FromPort: Port(443), ToPort: Port(443), CidrIPv4: "10.0.0.0/16"},
		{ID: "sgr-icmp", IsEgress: true, Protocol: "icmp", FromPort: Port(4), ToPort: Port(-1), CidrIPv4: "0.0.0.0/0"},
	}

	got, ok := FindRule(existing, httpsFrom("10.0.0.0/16", "new text"), Inbound)
	assert.True(t, ok)
	assert.Equal(t, "sgr-in", got.ID, "description is ignored")

	got, ok = FindRule(existing, httpsFrom("10.0.0.0/16", ""), Outbound)
	assert.True(t, ok)
	assert.Equal(t, "sgr-out", got.ID, "direction selects the rule")

	got, ok = FindRule(existing, DesiredRule{
		Protocol: "icmp", FromPort: Port(4), ToPort: Port(-1),
		IPRanges: []IPRange{{CIDR: "0.0.0.0/0"}},
	}, Outbound)
	assert.True(t, ok)
	assert.Equal(t, "sgr-icmp", got.ID)

	_, ok = FindRule(existing, httpsFrom("10.1.0.0/16", ""), Inbound)
	assert.False(t, ok, "different CIDR")

	_, ok = FindRule(existing, DesiredRule{Protocol: "tcp", FromPort: Port(443), ToPort: Port(444),
		IPRanges: []IPRange{{CIDR: "10.0.0.0/16"}}}, Inbound)
	assert.False(t, ok, "different port")

	_, ok = FindRule(existing, DesiredRule{Protocol: "udp", FromPort: Port(443), ToPort: Port(443),
		IPRanges: []IPRange{{CIDR: "10.0.0.0/16"}}}, Inbound)
	assert.False(t, ok, "different protocol")
}

func TestFindRule_RequiresExactlyOneRange(t *testing.T) {
	existing := []ExistingRule{
		{ID: "sgr-1", Protocol: "tcp", FromPort: Port(22), ToPort: Port(22), CidrIPv4: "10.0.0.0/16"},
	}
	desired := DesiredRule{Protocol: "tcp", FromPort: Port(22), ToPort: Port(22)}
	_, ok := FindRule(existing, desired, Inbound)
	assert.False(t, ok)

	desired.IPRanges = []IPRange{{CIDR: "10.0.0.0/16"}, {CIDR: "10.1.0.0/16"}}
	_, ok = FindRule(existing, desired, Inbound)
	assert.False(t, ok)
}

func TestFindRule_EmptyAndNil(t *testing.T) {
	_, ok := FindRule([]ExistingRule{}, httpsFrom("10.0.0.0/16", ""), Inbound)
	assert.False(t, ok)
	_, ok = FindRule(nil, httpsFrom("10.0.0.0/16", ""), Inbound)
	assert.False(t, ok)
}

func TestFindRule_NilPorts(t *testing.T) {
	existing := []ExistingRule{{ID: "all", Protocol: "-1", CidrIPv4: "0.0.0.0/0", IsEgress: true}}
	got, ok := FindRule(existing, DesiredRule{Protocol: "-1", IPRanges: []IPRange{{CIDR: "0.0.0.0/0"}}}, Outbound)
	assert.True(t, ok)
	assert.Equal(t, "all", got.ID)

	got, ok = FindRule(existing, DesiredRule{Protocol: "-1", FromPort: Port(-1), IPRanges: []IPRange{{CIDR: "0.0.0.0/0"}}}, Outbound)
	assert.True(t, ok, "absent and -1 ports are the same")
	assert.Equal(t, "all", got.ID)
}

func TestFindRule_AllTrafficReportedWithMinusOne(t *testing.T) {
	existing := []ExistingRule{
		{ID: "sgr-all", Protocol: "-1", FromPort: Port(-1), ToPort: Port(-1), CidrIPv4: "10.0.0.0/8"},
	}
	got, ok := FindRule(existing, DesiredRule{Protocol: "-1", IPRanges: []IPRange{{CIDR: "10.0.0.0/8"}}}, Inbound)
	assert.True(t, ok)
	assert.Equal(t, "sgr-all", got.ID)

	_, ok = FindRule(existing, DesiredRule{Protocol: "-1", FromPort: Port(0), ToPort: Port(0),
		IPRanges: []IPRange{{CIDR: "10.0.0.0/8"}}}, Inbound)
	assert.False(t, ok, "port 0 is not all ports")
}

func TestDirection(t *testing.T) {
	assert.False(t, Inbound.IsEgress())
	assert.True(t, Outbound.IsEgress())
	assert.Equal(t, "inbound", Inbound.String())
	assert.Equal(t, "Outbound", Outbound.Title())
}
