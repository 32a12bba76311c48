package efs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsefs "github.com/aws/aws-sdk-go-v2/service/efs"
	efstypes "github.com/aws/aws-sdk-go-v2/service/efs/types"
)

type EFSAPI interface {
	DescribeFileSystems(ctx context.Context, params *awsefs.DescribeFileSystemsInput, optFns ...func(*awsefs.Options)) (*awsefs.DescribeFileSystemsOutput, error)
	DescribeMountTargets(ctx context.Context, params *awsefs.DescribeMountTargetsInput, optFns ...func(*awsefs.Options)) (*awsefs.DescribeMountTargetsOutput, error)
	DeleteMountTarget(ctx context.Context, params *awsefs.DeleteMountTargetInput, optFns ...func(*awsefs.Options)) (*awsefs.DeleteMountTargetOutput, error)
	DeleteFileSystem(ctx context.Context, params *awsefs.DeleteFileSystemInput, optFns ...func(*awsefs.Options)) (*awsefs.DeleteFileSystemOutput, error)
}

type Client struct {
	api EFSAPI
}

func NewClient(api EFSAPI) *Client {
	return &Client{api: api}
}

func (c *Client) ListFileSystems(ctx context.Context) ([]FileSystemInfo, error) {
	var fss []FileSystemInfo
	var marker *string

	for {
		out, err := c.api.DescribeFileSystems(ctx, &awsefs.DescribeFileSystemsInput{
			Marker: marker,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeFileSystems: %w", err)
		}

		for _, fs := range out.FileSystems {
			fss = append(fss, FileSystemInfo{
				FileSystemID:  aws.ToString(fs.FileSystemId),
				Name:          aws.ToString(fs.Name),
				CreationToken: aws.ToString(fs.CreationToken),
				State:         string(fs.LifeCycleState),
				Tags:          tagMap(fs.Tags),
			})
		}

		if out.NextMarker == nil {
			break
		}
		marker = out.NextMarker
	}
	return fss, nil
}

// ListMountTargets skips mount targets already deleted.
func (c *Client) ListMountTargets(ctx context.Context, fileSystemID string) ([]MountTargetInfo, error) {
	var mts []MountTargetInfo
	var marker *string

	for {
		out, err := c.api.DescribeMountTargets(ctx, &awsefs.DescribeMountTargetsInput{
			FileSystemId: aws.String(fileSystemID),
			Marker:       marker,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeMountTargets(%s): %w", fileSystemID, err)
		}

		for _, mt := range out.MountTargets {
			if mt.LifeCycleState == efstypes.LifeCycleStateDeleted {
				continue
			}
			mts = append(mts, MountTargetInfo{
				MountTargetID: aws.ToString(mt.MountTargetId),
				FileSystemID:  aws.ToString(mt.FileSystemId),
				SubnetID:      aws.ToString(mt.SubnetId),
				IPAddress:     aws.ToString(mt.IpAddress),
				State:         string(mt.LifeCycleState),
			})
		}

		if out.NextMarker == nil {
			break
		}
		marker = out.NextMarker
	}
	return mts, nil
}

func (c *Client) DeleteMountTarget(ctx context.Context, mountTargetID string) error {
	_, err := c.api.DeleteMountTarget(ctx, &awsefs.DeleteMountTargetInput{
		MountTargetId: aws.String(mountTargetID),
	})
	if err != nil {
		return fmt.Errorf("DeleteMountTarget(%s): %w", mountTargetID, err)
	}
	return nil
}

func (c *Client) DeleteFileSystem(ctx context.Context, fileSystemID string) error {
	_, err := c.api.DeleteFileSystem(ctx, &awsefs.DeleteFileSystemInput{
		FileSystemId: aws.String(fileSystemID),
	})
	if err != nil {
		return fmt.Errorf("DeleteFileSystem(%s): %w", fileSystemID, err)
	}
	return nil
}

func tagMap(tags []efstypes.Tag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return m
}
