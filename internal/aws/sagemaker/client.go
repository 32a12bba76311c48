package sagemaker

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssm "github.com/aws/aws-sdk-go-v2/service/sagemaker"
	smtypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"k8s.io/apimachinery/pkg/util/sets"
)

type SageMakerAPI interface {
	ListDomains(ctx context.Context, params *awssm.ListDomainsInput, optFns ...func(*awssm.Options)) (*awssm.ListDomainsOutput, error)
}

type Client struct {
	api SageMakerAPI
}

func NewClient(api SageMakerAPI) *Client {
	return &Client{api: api}
}

func (c *Client) ListDomains(ctx context.Context) ([]Domain, error) {
	var domains []Domain
	var nextToken *string

	for {
		out, err := c.api.ListDomains(ctx, &awssm.ListDomainsInput{
			NextToken:  nextToken,
			MaxResults: aws.Int32(100),
		})
		if err != nil {
			return nil, fmt.Errorf("ListDomains: %w", err)
		}

		for _, d := range out.Domains {
			domains = append(domains, Domain{
				DomainID: aws.ToString(d.DomainId),
				Name:     aws.ToString(d.DomainName),
				Status:   string(d.Status),
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return domains, nil
}

// ActiveDomainIDs returns every domain not being deleted. Security groups and
// file systems carrying one of these ids belong to a live domain.
func (c *Client) ActiveDomainIDs(ctx context.Context) (sets.Set[string], error) {
	domains, err := c.ListDomains(ctx)
	if err != nil {
		return nil, err
	}
	ids := sets.New[string]()
	for _, d := range domains {
		if d.Status == string(smtypes.DomainStatusDeleting) {
			continue
		}
		ids.Insert(d.DomainID)
	}
	return ids, nil
}
