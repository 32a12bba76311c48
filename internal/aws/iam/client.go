package iam

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsiam "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
)

type IAMAPI interface {
	ListPolicies(ctx context.Context, params *awsiam.ListPoliciesInput, optFns ...func(*awsiam.Options)) (*awsiam.ListPoliciesOutput, error)
	ListAttachedRolePolicies(ctx context.Context, params *awsiam.ListAttachedRolePoliciesInput, optFns ...func(*awsiam.Options)) (*awsiam.ListAttachedRolePoliciesOutput, error)
}

type Client struct {
	api IAMAPI
}

func NewClient(api IAMAPI) *Client {
	return &Client{api: api}
}

// ListPolicies lists managed policies in scope ("All", "AWS" or "Local").
// An empty scope means Local.
func (c *Client) ListPolicies(ctx context.Context, scope string) ([]IAMPolicy, error) {
	policyScope := iamtypes.PolicyScopeTypeLocal
	if scope != "" {
		policyScope = iamtypes.PolicyScopeType(scope)
	}

	var policies []IAMPolicy
	var marker *string

	for {
		out, err := c.api.ListPolicies(ctx, &awsiam.ListPoliciesInput{
			Scope:  policyScope,
			Marker: marker,
		})
		if err != nil {
			return nil, fmt.Errorf("ListPolicies: %w", err)
		}

		for _, p := range out.Policies {
			var createdAt, updatedAt time.Time
			if p.CreateDate != nil {
				createdAt = *p.CreateDate
			}
			if p.UpdateDate != nil {
				updatedAt = *p.UpdateDate
			}

			policies = append(policies, IAMPolicy{
				Name:            aws.ToString(p.PolicyName),
				PolicyID:        aws.ToString(p.PolicyId),
				ARN:             aws.ToString(p.Arn),
				Path:            aws.ToString(p.Path),
				AttachmentCount: int(aws.ToInt32(p.AttachmentCount)),
				CreatedAt:       createdAt,
				UpdatedAt:       updatedAt,
			})
		}

		if !out.IsTruncated {
			break
		}
		marker = out.Marker
	}

	return policies, nil
}

// ListRedundantPolicies returns customer-managed policies attached to nothing.
func (c *Client) ListRedundantPolicies(ctx context.Context) ([]IAMPolicy, error) {
	policies, err := c.ListPolicies(ctx, string(iamtypes.PolicyScopeTypeLocal))
	if err != nil {
		return nil, err
	}
	var redundant []IAMPolicy
	for _, p := range policies {
		if p.AttachmentCount == 0 {
			redundant = append(redundant, p)
		}
	}
	return redundant, nil
}

func (c *Client) ListAttachedRolePolicies(ctx context.Context, roleName string) ([]IAMAttachedPolicy, error) {
	var policies []IAMAttachedPolicy
	var marker *string

	for {
		out, err := c.api.ListAttachedRolePolicies(ctx, &awsiam.ListAttachedRolePoliciesInput{
			RoleName: aws.String(roleName),
			Marker:   marker,
		})
		if err != nil {
			return nil, fmt.Errorf("ListAttachedRolePolicies(%s): %w", roleName, err)
		}

		for _, p := range out.AttachedPolicies {
			policies = append(policies, IAMAttachedPolicy{
				Name: aws.ToString(p.PolicyName),
				ARN:  aws.ToString(p.PolicyArn),
			})
		}

		if !out.IsTruncated {
			break
		}
		marker = out.Marker
	}

	return policies, nil
}
