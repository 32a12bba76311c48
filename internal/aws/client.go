package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	awsefssdk "github.com/aws/aws-sdk-go-v2/service/efs"
	awsiamsdk "github.com/aws/aws-sdk-go-v2/service/iam"
	awssagemakersdk "github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	awsefs "tasnim.dev/aws-sweep/internal/aws/efs"
	awsiam "tasnim.dev/aws-sweep/internal/aws/iam"
	awssagemaker "tasnim.dev/aws-sweep/internal/aws/sagemaker"
	awsvpc "tasnim.dev/aws-sweep/internal/aws/vpc"
)

type ServiceClient struct {
	Config    aws.Config
	STS       STSAPI
	VPC       *awsvpc.Client
	EFS       *awsefs.Client
	SageMaker *awssagemaker.Client
	IAM       *awsiam.Client
}

func NewServiceClient(ctx context.Context, profile, region string) (*ServiceClient, error) {
	cfg, err := LoadConfig(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	return NewServiceClientFromConfig(cfg), nil
}

func NewServiceClientFromConfig(cfg aws.Config) *ServiceClient {
	return &ServiceClient{
		Config:    cfg,
		STS:       sts.NewFromConfig(cfg),
		VPC:       awsvpc.NewClient(ec2.NewFromConfig(cfg)),
		EFS:       awsefs.NewClient(awsefssdk.NewFromConfig(cfg)),
		SageMaker: awssagemaker.NewClient(awssagemakersdk.NewFromConfig(cfg)),
		IAM:       awsiam.NewClient(awsiamsdk.NewFromConfig(cfg)),
	}
}

// AccountID returns the account behind the client's credentials.
func (c *ServiceClient) AccountID(ctx context.Context) (string, error) {
	id, err := AccountID(ctx, c.STS)
	if err != nil {
		return "", fmt.Errorf("resolving account: %w", err)
	}
	return id, nil
}
