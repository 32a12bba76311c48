package cleanup

import (
	"context"
	"strings"

	"github.com/apex/log"
	"k8s.io/apimachinery/pkg/util/sets"

	"tasnim.dev/aws-sweep/internal/aws/vpc"
	"tasnim.dev/aws-sweep/internal/retry"
)

// NetworkAPI is the slice of the VPC client the resolver drives.
type NetworkAPI interface {
	ListVPCs(ctx context.Context) ([]vpc.VPCInfo, error)
	ListSubnets(ctx context.Context, vpcID string) ([]vpc.SubnetInfo, error)
	ListSecurityGroups(ctx context.Context, vpcID string) ([]vpc.SecurityGroupInfo, error)
	ListSecurityGroupRules(ctx context.Context, groupID string) ([]vpc.SecurityGroupRule, error)
	ListNetworkInterfaces(ctx context.Context, vpcID string) ([]vpc.NetworkInterfaceInfo, error)
	ListInternetGateways(ctx context.Context, vpcID string) ([]vpc.InternetGatewayInfo, error)
	ListNATGateways(ctx context.Context, vpcID string) ([]vpc.NATGatewayInfo, error)
	ListVPCEndpoints(ctx context.Context, vpcID string) ([]vpc.VPCEndpointInfo, error)

	RevokeEgressRules(ctx context.Context, groupID string, ruleIDs []string) error
	RevokeIngressRules(ctx context.Context, groupID string, ruleIDs []string) error
	DeleteSecurityGroup(ctx context.Context, groupID string) error
	DeleteSubnet(ctx context.Context, subnetID string) error
	DeleteNATGateway(ctx context.Context, gatewayID string) error
	DeleteVPCEndpoints(ctx context.Context, endpointIDs []string) error
	DetachInternetGateway(ctx context.Context, gatewayID, vpcID string) error
	DeleteInternetGateway(ctx context.Context, gatewayID string) error
	DeleteVPC(ctx context.Context, vpcID string) error
}

const vpcStateAvailable = "available"

type options struct {
	poll retry.Config
}

// Option configures a Resolver or FileSystemPruner.
type Option func(*options)

// WithPollConfig sets the policy for every wait-until-gone.
func WithPollConfig(cfg retry.Config) Option {
	return func(o *options) { o.poll = cfg }
}

func buildOptions(opts []Option) options {
	o := options{poll: retry.DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Resolver computes and removes orphaned security groups.
type Resolver struct {
	network NetworkAPI
	logger  log.Interface
	poll    retry.Config
}

func NewResolver(network NetworkAPI, logger log.Interface, opts ...Option) *Resolver {
	o := buildOptions(opts)
	return &Resolver{
		network: network,
		logger:  logger,
		poll:    o.poll,
	}
}

// Graph is a point-in-time snapshot of VPC containment. It is rebuilt on
// every call and may already be stale when used.
type Graph struct {
	VPCs              sets.Set[string]
	GroupsByVPC       map[string]sets.Set[string]
	InterfacesByGroup map[string]sets.Set[string]
	SubnetByInterface map[string]string
}

// UsedSecurityGroups returns every group reached from an available VPC,
// directly or through an attached interface.
func (g *Graph) UsedSecurityGroups() sets.Set[string] {
	used := sets.New[string]()
	for _, groups := range g.GroupsByVPC {
		used = used.Union(groups)
	}
	for groupID := range g.InterfacesByGroup {
		used.Insert(groupID)
	}
	return used
}

// BuildGraph walks every available VPC. A failed listing aborts the walk.
func (r *Resolver) BuildGraph(ctx context.Context) (*Graph, error) {
	vpcs, err := r.network.ListVPCs(ctx)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		VPCs:              sets.New[string](),
		GroupsByVPC:       make(map[string]sets.Set[string]),
		InterfacesByGroup: make(map[string]sets.Set[string]),
		SubnetByInterface: make(map[string]string),
	}

	for _, v := range vpcs {
		if v.State != vpcStateAvailable {
			continue
		}
		g.VPCs.Insert(v.VPCID)

		groups, err := r.network.ListSecurityGroups(ctx, v.VPCID)
		if err != nil {
			return nil, err
		}
		members := sets.New[string]()
		for _, sg := range groups {
			members.Insert(sg.GroupID)
			if _, ok := g.InterfacesByGroup[sg.GroupID]; !ok {
				g.InterfacesByGroup[sg.GroupID] = sets.New[string]()
			}
		}
		g.GroupsByVPC[v.VPCID] = members

		enis, err := r.network.ListNetworkInterfaces(ctx, v.VPCID)
		if err != nil {
			return nil, err
		}
		for _, eni := range enis {
			g.SubnetByInterface[eni.InterfaceID] = eni.SubnetID
			for _, groupID := range eni.GroupIDs {
				if _, ok := g.InterfacesByGroup[groupID]; !ok {
					g.InterfacesByGroup[groupID] = sets.New[string]()
				}
				g.InterfacesByGroup[groupID].Insert(eni.InterfaceID)
			}
		}
	}

	r.logger.WithFields(log.Fields{
		"vpcs":       g.VPCs.Len(),
		"groups":     len(g.InterfacesByGroup),
		"interfaces": len(g.SubnetByInterface),
	}).Debug("built network graph")
	return g, nil
}

// BuildUsedSecurityGroupSet returns the ids of every group reachable from an
// available VPC. It has no side effects.
func (r *Resolver) BuildUsedSecurityGroupSet(ctx context.Context) (sets.Set[string], error) {
	g, err := r.BuildGraph(ctx)
	if err != nil {
		return nil, err
	}
	return g.UsedSecurityGroups(), nil
}

// ResolveOrphans returns groups not reachable from any available VPC, plus
// groups whose description contains descriptionFilter and names no id in
// allowList. An empty descriptionFilter disables the second clause.
func (r *Resolver) ResolveOrphans(ctx context.Context, descriptionFilter string, allowList sets.Set[string]) (sets.Set[string], error) {
	all, err := r.network.ListSecurityGroups(ctx, "")
	if err != nil {
		return nil, err
	}
	used, err := r.BuildUsedSecurityGroupSet(ctx)
	if err != nil {
		return nil, err
	}

	orphans := sets.New[string]()
	for _, sg := range all {
		switch {
		case !used.Has(sg.GroupID):
			orphans.Insert(sg.GroupID)
		case matchesDescription(sg.Description, descriptionFilter, allowList):
			r.logger.WithFields(log.Fields{
				"group_id":    sg.GroupID,
				"description": sg.Description,
			}).Debug("description matches filter with no live parent")
			orphans.Insert(sg.GroupID)
		}
	}

	r.logger.WithFields(log.Fields{
		"total":   len(all),
		"used":    used.Len(),
		"orphans": orphans.Len(),
	}).Info("resolved orphaned security groups")
	return orphans, nil
}

func matchesDescription(description, filter string, allowList sets.Set[string]) bool {
	if filter == "" || !strings.Contains(description, filter) {
		return false
	}
	for id := range allowList {
		if id != "" && strings.Contains(description, id) {
			return false
		}
	}
	return true
}
