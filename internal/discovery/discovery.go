// Package discovery turns endpoint references such as "rds-host:mydb" into
// the live values AWS reports for them, so secret values can be written
// without copying hostnames by hand.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/pankaj-dahiya-devops/credprov/internal/logging"
	"github.com/pankaj-dahiya-devops/credprov/internal/providers/aws/common"
)

// Reference kinds.
const (
	KindRDSHost = "rds-host"
	KindRDSPort = "rds-port"
	KindALBDNS  = "alb-dns"
)

// ErrNotFound is returned when the referenced resource does not exist.
var ErrNotFound = errors.New("referenced resource not found")

// Reference is a parsed "<kind>:<name>" value.
type Reference struct {
	Kind string
	Name string
}

func (r Reference) String() string { return r.Kind + ":" + r.Name }

// ParseReference splits value into a Reference. ok is false when value is
// not a reference and should be used literally.
func ParseReference(value string) (ref Reference, ok bool) {
	kind, name, found := strings.Cut(value, ":")
	if !found || name == "" {
		return Reference{}, false
	}
	switch kind {
	case KindRDSHost, KindRDSPort, KindALBDNS:
		return Reference{Kind: kind, Name: name}, true
	}
	return Reference{}, false
}

// Resolver looks references up through a credential scope.
type Resolver struct {
	session common.Session
	log     *slog.Logger
}

// NewResolver returns a Resolver using s for all remote calls. A nil log
// discards diagnostics.
func NewResolver(s common.Session, log *slog.Logger) *Resolver {
	if log == nil {
		log = logging.Discard()
	}
	return &Resolver{session: s, log: log}
}

// Resolve returns the value value refers to, or value itself when it is
// not a reference.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	ref, ok := ParseReference(value)
	if !ok {
		return value, nil
	}
	clients, err := r.session.Clients()
	if err != nil {
		return "", err
	}

	var resolved string
	switch ref.Kind {
	case KindRDSHost, KindRDSPort:
		host, port, err := dbEndpoint(ctx, clients.RDS, ref.Name)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", ref, err)
		}
		resolved = host
		if ref.Kind == KindRDSPort {
			resolved = strconv.Itoa(int(port))
		}
	case KindALBDNS:
		dns, err := loadBalancerDNS(ctx, clients.ELBv2, ref.Name)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", ref, err)
		}
		resolved = dns
	}
	r.log.Debug("reference resolved", "reference", ref.String(), "value", resolved)
	return resolved, nil
}

func dbEndpoint(ctx context.Context, c common.RDSClient, id string) (string, int32, error) {
	out, err := c.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(id),
	})
	if err != nil {
		if common.IsNotFound(err) {
			return "", 0, ErrNotFound
		}
		return "", 0, err
	}
	if len(out.DBInstances) == 0 || out.DBInstances[0].Endpoint == nil {
		return "", 0, ErrNotFound
	}
	ep := out.DBInstances[0].Endpoint
	return aws.ToString(ep.Address), aws.ToInt32(ep.Port), nil
}

func loadBalancerDNS(ctx context.Context, c common.ELBv2Client, name string) (string, error) {
	out, err := c.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{
		Names: []string{name},
	})
	if err != nil {
		if common.IsNotFound(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	if len(out.LoadBalancers) == 0 {
		return "", ErrNotFound
	}
	return aws.ToString(out.LoadBalancers[0].DNSName), nil
}
