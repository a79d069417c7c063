package bootstrap

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"chorddht/internal/config"
	"chorddht/internal/ring"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// Route53Bootstrap discovers and advertises ring membership through SRV
// records in a Route53 hosted zone, letting nodes join across restarts
// and redeploys without a fixed peer list.
type Route53Bootstrap struct {
	client       *route53.Client
	space        ring.Space
	hostedZoneID string
	domainSuffix string
	ttl          int64
}

// NewRoute53Bootstrap builds a bootstrap source backed by cfg's hosted
// zone, using the default AWS credential chain.
func NewRoute53Bootstrap(cfg config.RegisterConfig, space ring.Space) (*Route53Bootstrap, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Route53Bootstrap{
		client:       client,
		space:        space,
		hostedZoneID: cfg.HostedZoneID,
		domainSuffix: strings.TrimSuffix(cfg.DomainSuffix, "."),
		ttl:          cfg.TTL,
	}, nil
}

func newClient(ctx context.Context) (*route53.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return route53.NewFromConfig(awsCfg), nil
}

// Discover queries Route53 for SRV records in the hosted zone and
// resolves each target to a dialable address.
func (r *Route53Bootstrap) Discover(ctx context.Context) ([]string, error) {
	var endpoints []string
	input := &route53.ListResourceRecordSetsInput{
		HostedZoneId: aws.String(r.hostedZoneID),
	}
	paginator := route53.NewListResourceRecordSetsPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list records: %w", err)
		}
		for _, rrset := range page.ResourceRecordSets {
			if rrset.Type != "SRV" {
				continue
			}
			if !strings.HasSuffix(strings.TrimSuffix(*rrset.Name, "."), r.domainSuffix) {
				continue
			}

			for _, rr := range rrset.ResourceRecords {
				var prio, weight, port int
				var target string
				if _, err := fmt.Sscanf(*rr.Value, "%d %d %d %s", &prio, &weight, &port, &target); err != nil {
					continue
				}
				target = strings.TrimSuffix(target, ".")

				ips, err := net.LookupHost(target)
				if err != nil {
					continue
				}
				for _, ip := range ips {
					endpoints = append(endpoints, fmt.Sprintf("%s:%d", ip, port))
				}
			}
		}
	}

	return endpoints, nil
}

func (r *Route53Bootstrap) recordName(self ring.NodeInfo) string {
	return fmt.Sprintf("%s.%s.", self.ID.Hex(r.space), r.domainSuffix)
}

// Register creates or updates an SRV record in Route53 for self.
func (r *Route53Bootstrap) Register(ctx context.Context, self ring.NodeInfo) error {
	host, port, err := net.SplitHostPort(self.Address)
	if err != nil {
		return err
	}
	input := &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(r.hostedZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{
					Action: types.ChangeActionUpsert,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name: aws.String(r.recordName(self)),
						Type: types.RRTypeSrv,
						TTL:  aws.Int64(r.ttl),
						ResourceRecords: []types.ResourceRecord{
							{
								// Format: priority weight port target (priority and weight fixed at 0).
								Value: aws.String(fmt.Sprintf("0 0 %s %s.", port, host)),
							},
						},
					},
				},
			},
		},
	}
	_, err = r.client.ChangeResourceRecordSets(ctx, input)
	return err
}

// Deregister removes the SRV record for self from Route53.
func (r *Route53Bootstrap) Deregister(ctx context.Context, self ring.NodeInfo) error {
	host, port, err := net.SplitHostPort(self.Address)
	if err != nil {
		return err
	}
	input := &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(r.hostedZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{
					Action: types.ChangeActionDelete,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name: aws.String(r.recordName(self)),
						Type: types.RRTypeSrv,
						TTL:  aws.Int64(r.ttl),
						ResourceRecords: []types.ResourceRecord{
							{
								Value: aws.String(fmt.Sprintf("0 0 %s %s.", port, host)),
							},
						},
					},
				},
			},
		},
	}
	_, err = r.client.ChangeResourceRecordSets(ctx, input)
	return err
}
