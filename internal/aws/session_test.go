package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSTSAPI struct {
	getCallerIdentityFunc func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

func (m *mockSTSAPI) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return m.getCallerIdentityFunc(ctx, params, optFns...)
}

func TestAccountID(t *testing.T) {
	mock := &mockSTSAPI{
		getCallerIdentityFunc: func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
			return &sts.GetCallerIdentityOutput{Account: aws.String("123456789012")}, nil
		},
	}

	id, err := AccountID(context.Background(), mock)
	require.NoError(t, err)
	assert.Equal(t, "123456789012", id)
}

func TestAccountID_Error(t *testing.T) {
	mock := &mockSTSAPI{
		getCallerIdentityFunc: func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
			return nil, errors.New("expired token")
		},
	}

	sc := &ServiceClient{STS: mock}
	_, err := sc.AccountID(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GetCallerIdentity")
	assert.Contains(t, err.Error(), "expired token")
}

func TestNewServiceClientFromConfig(t *testing.T) {
	sc := NewServiceClientFromConfig(aws.Config{Region: "us-east-1"})

	assert.NotNil(t, sc.STS)
	assert.NotNil(t, sc.VPC)
	assert.NotNil(t, sc.EFS)
	assert.NotNil(t, sc.SageMaker)
	assert.NotNil(t, sc.IAM)
	assert.Equal(t, "us-east-1", sc.Config.Region)
}
