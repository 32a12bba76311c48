package vpc

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

type VPCAPI interface {
	DescribeVpcs(ctx context.Context, params *awsec2.DescribeVpcsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeVpcsOutput, error)
	DescribeSubnets(ctx context.Context, params *awsec2.DescribeSubnetsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeSubnetsOutput, error)
	DescribeSecurityGroups(ctx context.Context, params *awsec2.DescribeSecurityGroupsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeSecurityGroupsOutput, error)
	DescribeSecurityGroupRules(ctx context.Context, params *awsec2.DescribeSecurityGroupRulesInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeSecurityGroupRulesOutput, error)
	DescribeNetworkInterfaces(ctx context.Context, params *awsec2.DescribeNetworkInterfacesInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeNetworkInterfacesOutput, error)
	DescribeInternetGateways(ctx context.Context, params *awsec2.DescribeInternetGatewaysInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeInternetGatewaysOutput, error)
	DescribeNatGateways(ctx context.Context, params *awsec2.DescribeNatGatewaysInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeNatGatewaysOutput, error)
	DescribeVpcEndpoints(ctx context.Context, params *awsec2.DescribeVpcEndpointsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeVpcEndpointsOutput, error)

	RevokeSecurityGroupEgress(ctx context.Context, params *awsec2.RevokeSecurityGroupEgressInput, optFns ...func(*awsec2.Options)) (*awsec2.RevokeSecurityGroupEgressOutput, error)
	RevokeSecurityGroupIngress(ctx context.Context, params *awsec2.RevokeSecurityGroupIngressInput, optFns ...func(*awsec2.Options)) (*awsec2.RevokeSecurityGroupIngressOutput, error)
	DeleteSecurityGroup(ctx context.Context, params *awsec2.DeleteSecurityGroupInput, optFns ...func(*awsec2.Options)) (*awsec2.DeleteSecurityGroupOutput, error)
	DeleteSubnet(ctx context.Context, params *awsec2.DeleteSubnetInput, optFns ...func(*awsec2.Options)) (*awsec2.DeleteSubnetOutput, error)
	DeleteNatGateway(ctx context.Context, params *awsec2.DeleteNatGatewayInput, optFns ...func(*awsec2.Options)) (*awsec2.DeleteNatGatewayOutput, error)
	DeleteVpcEndpoints(ctx context.Context, params *awsec2.DeleteVpcEndpointsInput, optFns ...func(*awsec2.Options)) (*awsec2.DeleteVpcEndpointsOutput, error)
	DetachInternetGateway(ctx context.Context, params *awsec2.DetachInternetGatewayInput, optFns ...func(*awsec2.Options)) (*awsec2.DetachInternetGatewayOutput, error)
	DeleteInternetGateway(ctx context.Context, params *awsec2.DeleteInternetGatewayInput, optFns ...func(*awsec2.Options)) (*awsec2.DeleteInternetGatewayOutput, error)
	DeleteVpc(ctx context.Context, params *awsec2.DeleteVpcInput, optFns ...func(*awsec2.Options)) (*awsec2.DeleteVpcOutput, error)
}

type Client struct {
	api VPCAPI
}

func NewClient(api VPCAPI) *Client {
	return &Client{api: api}
}

func nameFromTags(tags []types.Tag) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}

// vpcFilter scopes a Describe call to one VPC. An empty id means all VPCs.
func vpcFilter(name, vpcID string) []types.Filter {
	if vpcID == "" {
		return nil
	}
	return []types.Filter{{Name: aws.String(name), Values: []string{vpcID}}}
}

func (c *Client) ListVPCs(ctx context.Context) ([]VPCInfo, error) {
	var vpcs []VPCInfo
	var nextToken *string

	for {
		out, err := c.api.DescribeVpcs(ctx, &awsec2.DescribeVpcsInput{
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeVpcs: %w", err)
		}

		for _, v := range out.Vpcs {
			vpcs = append(vpcs, VPCInfo{
				VPCID:     aws.ToString(v.VpcId),
				Name:      nameFromTags(v.Tags),
				CIDR:      aws.ToString(v.CidrBlock),
				IsDefault: aws.ToBool(v.IsDefault),
				State:     string(v.State),
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return vpcs, nil
}

func (c *Client) ListSubnets(ctx context.Context, vpcID string) ([]SubnetInfo, error) {
	var subnets []SubnetInfo
	var nextToken *string

	for {
		out, err := c.api.DescribeSubnets(ctx, &awsec2.DescribeSubnetsInput{
			Filters:   vpcFilter("vpc-id", vpcID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeSubnets: %w", err)
		}

		for _, s := range out.Subnets {
			subnets = append(subnets, SubnetInfo{
				SubnetID:     aws.ToString(s.SubnetId),
				VPCID:        aws.ToString(s.VpcId),
				Name:         nameFromTags(s.Tags),
				CIDR:         aws.ToString(s.CidrBlock),
				AZ:           aws.ToString(s.AvailabilityZone),
				AvailableIPs: int(aws.ToInt32(s.AvailableIpAddressCount)),
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return subnets, nil
}

// ListSecurityGroups lists the groups of one VPC, or of the whole account
// when vpcID is empty.
func (c *Client) ListSecurityGroups(ctx context.Context, vpcID string) ([]SecurityGroupInfo, error) {
	var sgs []SecurityGroupInfo
	var nextToken *string

	for {
		out, err := c.api.DescribeSecurityGroups(ctx, &awsec2.DescribeSecurityGroupsInput{
			Filters:   vpcFilter("vpc-id", vpcID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeSecurityGroups: %w", err)
		}

		for _, sg := range out.SecurityGroups {
			sgs = append(sgs, SecurityGroupInfo{
				GroupID:       aws.ToString(sg.GroupId),
				VPCID:         aws.ToString(sg.VpcId),
				Name:          aws.ToString(sg.GroupName),
				Description:   aws.ToString(sg.Description),
				InboundRules:  len(sg.IpPermissions),
				OutboundRules: len(sg.IpPermissionsEgress),
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return sgs, nil
}

// ListSecurityGroupRules lists the rules owned by groupID, or every rule in
// the account when groupID is empty.
func (c *Client) ListSecurityGroupRules(ctx context.Context, groupID string) ([]SecurityGroupRule, error) {
	var rules []SecurityGroupRule
	var nextToken *string

	for {
		out, err := c.api.DescribeSecurityGroupRules(ctx, &awsec2.DescribeSecurityGroupRulesInput{
			Filters:   vpcFilter("group-id", groupID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeSecurityGroupRules: %w", err)
		}

		for _, r := range out.SecurityGroupRules {
			rule := SecurityGroupRule{
				RuleID:      aws.ToString(r.SecurityGroupRuleId),
				GroupID:     aws.ToString(r.GroupId),
				IsEgress:    aws.ToBool(r.IsEgress),
				Protocol:    NormalizeProtocol(aws.ToString(r.IpProtocol)),
				PortRange:   portRange(r.FromPort, r.ToPort),
				Description: aws.ToString(r.Description),
			}
			if r.ReferencedGroupInfo != nil {
				rule.ReferencedGroupID = aws.ToString(r.ReferencedGroupInfo.GroupId)
			}
			switch {
			case rule.ReferencedGroupID != "":
				rule.Peer = rule.ReferencedGroupID
			case r.CidrIpv4 != nil:
				rule.Peer = aws.ToString(r.CidrIpv4)
			case r.CidrIpv6 != nil:
				rule.Peer = aws.ToString(r.CidrIpv6)
			case r.PrefixListId != nil:
				rule.Peer = aws.ToString(r.PrefixListId)
			}
			rules = append(rules, rule)
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return rules, nil
}

func portRange(from, to *int32) string {
	if from == nil || aws.ToInt32(from) == -1 {
		return "All"
	}
	if aws.ToInt32(from) == aws.ToInt32(to) {
		return fmt.Sprintf("%d", aws.ToInt32(from))
	}
	return fmt.Sprintf("%d-%d", aws.ToInt32(from), aws.ToInt32(to))
}

func (c *Client) ListNetworkInterfaces(ctx context.Context, vpcID string) ([]NetworkInterfaceInfo, error) {
	var enis []NetworkInterfaceInfo
	var nextToken *string

	for {
		out, err := c.api.DescribeNetworkInterfaces(ctx, &awsec2.DescribeNetworkInterfacesInput{
			Filters:   vpcFilter("vpc-id", vpcID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeNetworkInterfaces: %w", err)
		}

		for _, ni := range out.NetworkInterfaces {
			groupIDs := make([]string, 0, len(ni.Groups))
			for _, g := range ni.Groups {
				groupIDs = append(groupIDs, aws.ToString(g.GroupId))
			}
			enis = append(enis, NetworkInterfaceInfo{
				InterfaceID: aws.ToString(ni.NetworkInterfaceId),
				VPCID:       aws.ToString(ni.VpcId),
				SubnetID:    aws.ToString(ni.SubnetId),
				Description: aws.ToString(ni.Description),
				Status:      string(ni.Status),
				GroupIDs:    groupIDs,
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return enis, nil
}

func (c *Client) ListInternetGateways(ctx context.Context, vpcID string) ([]InternetGatewayInfo, error) {
	var igws []InternetGatewayInfo
	var nextToken *string

	for {
		out, err := c.api.DescribeInternetGateways(ctx, &awsec2.DescribeInternetGatewaysInput{
			Filters:   vpcFilter("attachment.vpc-id", vpcID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeInternetGateways: %w", err)
		}

		for _, igw := range out.InternetGateways {
			state := "detached"
			for _, att := range igw.Attachments {
				if aws.ToString(att.VpcId) == vpcID {
					state = string(att.State)
					break
				}
			}
			igws = append(igws, InternetGatewayInfo{
				GatewayID: aws.ToString(igw.InternetGatewayId),
				Name:      nameFromTags(igw.Tags),
				State:     state,
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return igws, nil
}

// ListNATGateways skips gateways already in the deleted state.
func (c *Client) ListNATGateways(ctx context.Context, vpcID string) ([]NATGatewayInfo, error) {
	var gws []NATGatewayInfo
	var nextToken *string

	for {
		out, err := c.api.DescribeNatGateways(ctx, &awsec2.DescribeNatGatewaysInput{
			Filter:    vpcFilter("vpc-id", vpcID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeNatGateways: %w", err)
		}

		for _, ng := range out.NatGateways {
			if ng.State == types.NatGatewayStateDeleted {
				continue
			}
			info := NATGatewayInfo{
				GatewayID: aws.ToString(ng.NatGatewayId),
				Name:      nameFromTags(ng.Tags),
				State:     string(ng.State),
				Type:      string(ng.ConnectivityType),
				SubnetID:  aws.ToString(ng.SubnetId),
			}
			if len(ng.NatGatewayAddresses) > 0 {
				info.ElasticIP = aws.ToString(ng.NatGatewayAddresses[0].PublicIp)
				info.PrivateIP = aws.ToString(ng.NatGatewayAddresses[0].PrivateIp)
			}
			gws = append(gws, info)
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return gws, nil
}

// ListVPCEndpoints skips endpoints already in the deleted state.
func (c *Client) ListVPCEndpoints(ctx context.Context, vpcID string) ([]VPCEndpointInfo, error) {
	var eps []VPCEndpointInfo
	var nextToken *string

	for {
		out, err := c.api.DescribeVpcEndpoints(ctx, &awsec2.DescribeVpcEndpointsInput{
			Filters:   vpcFilter("vpc-id", vpcID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeVpcEndpoints: %w", err)
		}

		for _, ep := range out.VpcEndpoints {
			if ep.State == types.StateDeleted {
				continue
			}
			eps = append(eps, VPCEndpointInfo{
				EndpointID:    aws.ToString(ep.VpcEndpointId),
				ServiceName:   aws.ToString(ep.ServiceName),
				Type:          string(ep.VpcEndpointType),
				State:         string(ep.State),
				SubnetIDs:     ep.SubnetIds,
				RouteTableIDs: ep.RouteTableIds,
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return eps, nil
}
