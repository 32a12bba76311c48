package vpc

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
)

// RevokeEgressRules revokes outbound rules of groupID in one call.
func (c *Client) RevokeEgressRules(ctx context.Context, groupID string, ruleIDs []string) error {
	if len(ruleIDs) == 0 {
		return nil
	}
	_, err := c.api.RevokeSecurityGroupEgress(ctx, &awsec2.RevokeSecurityGroupEgressInput{
		GroupId:              aws.String(groupID),
		SecurityGroupRuleIds: ruleIDs,
	})
	if err != nil {
		return fmt.Errorf("RevokeSecurityGroupEgress(%s): %w", groupID, err)
	}
	return nil
}

// RevokeIngressRules revokes inbound rules of groupID in one call.
func (c *Client) RevokeIngressRules(ctx context.Context, groupID string, ruleIDs []string) error {
	if len(ruleIDs) == 0 {
		return nil
	}
	_, err := c.api.RevokeSecurityGroupIngress(ctx, &awsec2.RevokeSecurityGroupIngressInput{
		GroupId:              aws.String(groupID),
		SecurityGroupRuleIds: ruleIDs,
	})
	if err != nil {
		return fmt.Errorf("RevokeSecurityGroupIngress(%s): %w", groupID, err)
	}
	return nil
}

func (c *Client) DeleteSecurityGroup(ctx context.Context, groupID string) error {
	_, err := c.api.DeleteSecurityGroup(ctx, &awsec2.DeleteSecurityGroupInput{
		GroupId: aws.String(groupID),
	})
	if err != nil {
		return fmt.Errorf("DeleteSecurityGroup(%s): %w", groupID, err)
	}
	return nil
}

func (c *Client) DeleteSubnet(ctx context.Context, subnetID string) error {
	_, err := c.api.DeleteSubnet(ctx, &awsec2.DeleteSubnetInput{
		SubnetId: aws.String(subnetID),
	})
	if err != nil {
		return fmt.Errorf("DeleteSubnet(%s): %w", subnetID, err)
	}
	return nil
}

func (c *Client) DeleteNATGateway(ctx context.Context, gatewayID string) error {
	_, err := c.api.DeleteNatGateway(ctx, &awsec2.DeleteNatGatewayInput{
		NatGatewayId: aws.String(gatewayID),
	})
	if err != nil {
		return fmt.Errorf("DeleteNatGateway(%s): %w", gatewayID, err)
	}
	return nil
}

// DeleteVPCEndpoints fails if the API reports any endpoint as unsuccessful.
func (c *Client) DeleteVPCEndpoints(ctx context.Context, endpointIDs []string) error {
	if len(endpointIDs) == 0 {
		return nil
	}
	out, err := c.api.DeleteVpcEndpoints(ctx, &awsec2.DeleteVpcEndpointsInput{
		VpcEndpointIds: endpointIDs,
	})
	if err != nil {
		return fmt.Errorf("DeleteVpcEndpoints: %w", err)
	}
	if len(out.Unsuccessful) > 0 {
		item := out.Unsuccessful[0]
		msg := "unknown error"
		if item.Error != nil {
			msg = aws.ToString(item.Error.Code) + ": " + aws.ToString(item.Error.Message)
		}
		return fmt.Errorf("DeleteVpcEndpoints: %d unsuccessful, %s: %s",
			len(out.Unsuccessful), aws.ToString(item.ResourceId), msg)
	}
	return nil
}

func (c *Client) DetachInternetGateway(ctx context.Context, gatewayID, vpcID string) error {
	_, err := c.api.DetachInternetGateway(ctx, &awsec2.DetachInternetGatewayInput{
		InternetGatewayId: aws.String(gatewayID),
		VpcId:             aws.String(vpcID),
	})
	if err != nil {
		return fmt.Errorf("DetachInternetGateway(%s): %w", gatewayID, err)
	}
	return nil
}

func (c *Client) DeleteInternetGateway(ctx context.Context, gatewayID string) error {
	_, err := c.api.DeleteInternetGateway(ctx, &awsec2.DeleteInternetGatewayInput{
		InternetGatewayId: aws.String(gatewayID),
	})
	if err != nil {
		return fmt.Errorf("DeleteInternetGateway(%s): %w", gatewayID, err)
	}
	return nil
}

func (c *Client) DeleteVPC(ctx context.Context, vpcID string) error {
	_, err := c.api.DeleteVpc(ctx, &awsec2.DeleteVpcInput{
		VpcId: aws.String(vpcID),
	})
	if err != nil {
		return fmt.Errorf("DeleteVpc(%s): %w", vpcID, err)
	}
	return nil
}
