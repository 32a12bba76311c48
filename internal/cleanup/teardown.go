package cleanup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apex/log"
	"k8s.io/apimachinery/pkg/util/sets"

	"tasnim.dev/aws-sweep/internal/aws/awserr"
	"tasnim.dev/aws-sweep/internal/retry"
)

// TeardownVPC deletes a VPC and everything inside it: NAT gateways, VPC
// endpoints, internet gateways, non-default security groups and subnets, in
// that order. Each asynchronous delete is followed by a bounded wait. A VPC
// that is already gone is not an error.
func (r *Resolver) TeardownVPC(ctx context.Context, vpcID string) error {
	if strings.TrimSpace(vpcID) == "" {
		return fmt.Errorf("%w: empty vpc id", ErrValidation)
	}
	logger := r.logger.WithField("vpc_id", vpcID)
	logger.Info("tearing down vpc")

	steps := []struct {
		name string
		run  func(context.Context, string, log.Interface) error
	}{
		{"nat gateways", r.deleteNATGateways},
		{"vpc endpoints", r.deleteVPCEndpoints},
		{"internet gateways", r.deleteInternetGateways},
		{"security groups", r.deleteVPCSecurityGroups},
		{"subnets", r.deleteSubnets},
	}
	for _, step := range steps {
		if err := step.run(ctx, vpcID, logger); err != nil {
			return fmt.Errorf("TeardownVPC %s: %s: %w", vpcID, step.name, err)
		}
	}

	if err := r.network.DeleteVPC(ctx, vpcID); err != nil {
		if awserr.IsNotFound(err) {
			logger.WithError(err).Info("vpc already deleted")
			return nil
		}
		if awserr.IsInUse(err) {
			return fmt.Errorf("TeardownVPC %s: %w: %w", vpcID, ErrInUse, err)
		}
		return fmt.Errorf("TeardownVPC %s: %w", vpcID, err)
	}

	err := r.waitGone(ctx, logger, "vpc", func(ctx context.Context) (int, error) {
		vpcs, err := r.network.ListVPCs(ctx)
		if err != nil {
			return 0, err
		}
		for _, v := range vpcs {
			if v.VPCID == vpcID {
				return 1, nil
			}
		}
		return 0, nil
	})
	if err != nil {
		return fmt.Errorf("TeardownVPC %s: %w", vpcID, err)
	}
	logger.Info("deleted vpc")
	return nil
}

func (r *Resolver) deleteNATGateways(ctx context.Context, vpcID string, logger log.Interface) error {
	gateways, err := r.network.ListNATGateways(ctx, vpcID)
	if err != nil {
		return err
	}
	if len(gateways) == 0 {
		return nil
	}
	for _, gw := range gateways {
		if gw.State == "deleting" {
			continue
		}
		if err := r.network.DeleteNATGateway(ctx, gw.GatewayID); err != nil && !awserr.IsNotFound(err) {
			return err
		}
		logger.WithField("nat_gateway_id", gw.GatewayID).Info("deleting nat gateway")
	}
	return r.waitGone(ctx, logger, "nat gateways", func(ctx context.Context) (int, error) {
		remaining, err := r.network.ListNATGateways(ctx, vpcID)
		return len(remaining), err
	})
}

func (r *Resolver) deleteVPCEndpoints(ctx context.Context, vpcID string, logger log.Interface) error {
	endpoints, err := r.network.ListVPCEndpoints(ctx, vpcID)
	if err != nil {
		return err
	}
	if len(endpoints) == 0 {
		return nil
	}
	ids := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		ids = append(ids, ep.EndpointID)
	}
	if err := r.network.DeleteVPCEndpoints(ctx, ids); err != nil && !awserr.IsNotFound(err) {
		return err
	}
	logger.WithField("endpoints", len(ids)).Info("deleting vpc endpoints")
	return r.waitGone(ctx, logger, "vpc endpoints", func(ctx context.Context) (int, error) {
		remaining, err := r.network.ListVPCEndpoints(ctx, vpcID)
		return len(remaining), err
	})
}

func (r *Resolver) deleteInternetGateways(ctx context.Context, vpcID string, logger log.Interface) error {
	gateways, err := r.network.ListInternetGateways(ctx, vpcID)
	if err != nil {
		return err
	}
	for _, gw := range gateways {
		gwLogger := logger.WithField("internet_gateway_id", gw.GatewayID)
		if err := r.network.DetachInternetGateway(ctx, gw.GatewayID, vpcID); err != nil && !awserr.IsNotFound(err) {
			return err
		}
		if err := r.network.DeleteInternetGateway(ctx, gw.GatewayID); err != nil {
			if !awserr.IsNotFound(err) {
				return err
			}
			gwLogger.WithError(err).Info("internet gateway already deleted")
			continue
		}
		gwLogger.Info("deleted internet gateway")
	}
	return nil
}

func (r *Resolver) deleteVPCSecurityGroups(ctx context.Context, vpcID string, logger log.Interface) error {
	groups, err := r.network.ListSecurityGroups(ctx, vpcID)
	if err != nil {
		return err
	}
	ids := sets.New[string]()
	for _, sg := range groups {
		// The default group goes away with the VPC and cannot be deleted.
		if sg.IsDefault() {
			continue
		}
		ids.Insert(sg.GroupID)
	}
	if ids.Len() == 0 {
		return nil
	}
	outcomes := r.DeleteSecurityGroupsCascading(ctx, ids, DeleteOptions{RevokeReferencingRules: true})
	return JoinErrors(outcomes)
}

func (r *Resolver) deleteSubnets(ctx context.Context, vpcID string, logger log.Interface) error {
	subnets, err := r.network.ListSubnets(ctx, vpcID)
	if err != nil {
		return err
	}
	var errs []error
	for _, subnet := range subnets {
		subnetLogger := logger.WithField("subnet_id", subnet.SubnetID)
		if err := r.network.DeleteSubnet(ctx, subnet.SubnetID); err != nil {
			if awserr.IsNotFound(err) {
				subnetLogger.WithError(err).Info("subnet already deleted")
				continue
			}
			errs = append(errs, err)
			continue
		}
		subnetLogger.Info("deleted subnet")
	}
	return errors.Join(errs...)
}

// waitGone polls count until it reports zero. A NotFound from count means the
// parent itself is gone, which also ends the wait.
func (r *Resolver) waitGone(ctx context.Context, logger log.Interface, what string, count func(context.Context) (int, error)) error {
	return waitGone(ctx, r.poll, logger, what, count)
}

func waitGone(ctx context.Context, cfg retry.Config, logger log.Interface, what string, count func(context.Context) (int, error)) error {
	err := retry.Poll(ctx, cfg, func(ctx context.Context) (bool, error) {
		n, err := count(ctx)
		if err != nil {
			if awserr.IsNotFound(err) {
				return true, nil
			}
			return false, err
		}
		if n > 0 {
			logger.WithFields(log.Fields{"waiting_for": what, "remaining": n}).Debug("still deleting")
		}
		return n == 0, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", what, err)
	}
	return nil
}
