package secgroups

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// Direction selects inbound (ingress) or outbound (egress) rules.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

// IsEgress reports whether d is Outbound.
func (d Direction) IsEgress() bool { return d == Outbound }

func (d Direction) String() string {
	if d == Outbound {
		return "outbound"
	}
	return "inbound"
}

// Title is the capitalised direction name used in reports.
func (d Direction) Title() string {
	if d == Outbound {
		return "Outbound"
	}
	return "Inbound"
}

// ExistingRule is a rule as DescribeSecurityGroupRules reports it.
type ExistingRule struct {
	ID          string
	GroupID     string
	IsEgress    bool
	Protocol    string
	FromPort    *int32
	ToPort      *int32
	CidrIPv4    string
	CidrIPv6    string
	Description string

	// ReferencedGroupID is set when the rule's peer is another group.
	ReferencedGroupID string
}

// IPRange is one CIDR of a desired rule.
type IPRange struct {
	CIDR        string
	Description string
}

// DesiredRule is a rule as it is submitted for creation.
type DesiredRule struct {
	Protocol string
	FromPort *int32
	ToPort   *int32
	IPRanges []IPRange
}

// Port returns a pointer to p for building rules.
func Port(p int32) *int32 { return &p }

// FindRule returns the rule in existing that desired describes in
// direction dir. Protocol, ports, direction and CIDR must all be equal;
// descriptions are ignored. A desired rule must carry exactly one IP range
// to match anything.
func FindRule(existing []ExistingRule, desired DesiredRule, dir Direction) (ExistingRule, bool) {
	if len(desired.IPRanges) != 1 {
		return ExistingRule{}, false
	}
	cidr := desired.IPRanges[0].CIDR
	for _, rule := range existing {
		if rule.Protocol == desired.Protocol &&
			equalPort(rule.FromPort, desired.FromPort) &&
			equalPort(rule.ToPort, desired.ToPort) &&
			rule.IsEgress == dir.IsEgress() &&
			rule.CidrIPv4 == cidr {
			return rule, true
		}
	}
	return ExistingRule{}, false
}

// equalPort treats an absent port and -1 alike; EC2 reports all-traffic
// rules with -1 for ports that were never given.
func equalPort(a, b *int32) bool {
	return portOrAll(a) == portOrAll(b)
}

func portOrAll(p *int32) int32 {
	if p == nil {
		return -1
	}
	return *p
}

func existingFromSDK(r ec2types.SecurityGroupRule) ExistingRule {
	rule := ExistingRule{
		ID:          aws.ToString(r.SecurityGroupRuleId),
		GroupID:     aws.ToString(r.GroupId),
		IsEgress:    aws.ToBool(r.IsEgress),
		Protocol:    aws.ToString(r.IpProtocol),
		FromPort:    r.FromPort,
		ToPort:      r.ToPort,
		CidrIPv4:    aws.ToString(r.CidrIpv4),
		CidrIPv6:    aws.ToString(r.CidrIpv6),
		Description: aws.ToString(r.Description),
	}
	if r.ReferencedGroupInfo != nil {
		rule.ReferencedGroupID = aws.ToString(r.ReferencedGroupInfo.GroupId)
	}
	return rule
}

func (d DesiredRule) ipPermission() ec2types.IpPermission {
	perm := ec2types.IpPermission{
		IpProtocol: aws.String(d.Protocol),
		FromPort:   d.FromPort,
		ToPort:     d.ToPort,
	}
	for _, r := range d.IPRanges {
		ipRange := ec2types.IpRange{CidrIp: aws.String(r.CIDR)}
		if r.Description != "" {
			ipRange.Description = aws.String(r.Description)
		}
		perm.IpRanges = append(perm.IpRanges, ipRange)
	}
	return perm
}
