package cleanup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apex/log"
	"k8s.io/apimachinery/pkg/util/sets"

	"tasnim.dev/aws-sweep/internal/aws/awserr"
	"tasnim.dev/aws-sweep/internal/aws/vpc"
)

// DeleteOptions tunes DeleteSecurityGroupsCascading.
type DeleteOptions struct {
	// RevokeReferencingRules also revokes rules in other groups that name a
	// group being deleted. Without it such a group fails with ErrInUse.
	RevokeReferencingRules bool
	// DryRun reports every group as StatusSkipped without calling the API.
	DryRun bool
}

// DeleteSecurityGroupsCascading revokes every rule of each group and then
// deletes it. Groups are processed in sorted order and independently: one
// failure never stops the rest. The result holds one Outcome per id.
func (r *Resolver) DeleteSecurityGroupsCascading(ctx context.Context, groupIDs sets.Set[string], opts DeleteOptions) []Outcome {
	ids := sets.List(groupIDs)
	outcomes := make([]Outcome, 0, len(ids))

	var referencing map[string][]vpc.SecurityGroupRule
	if opts.RevokeReferencingRules && !opts.DryRun && len(ids) > 0 {
		referencing = r.referencingRules(ctx, groupIDs)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, Outcome{ID: id, Status: StatusFailed, Err: err})
			continue
		}
		outcomes = append(outcomes, r.deleteSecurityGroup(ctx, id, opts, referencing[id]))
	}

	counts := Count(outcomes)
	r.logger.WithFields(log.Fields{
		"requested":    len(ids),
		"deleted":      counts[StatusDeleted],
		"already_gone": counts[StatusAlreadyGone],
		"failed":       counts[StatusFailed],
		"skipped":      counts[StatusSkipped],
	}).Info("security group deletion finished")
	return outcomes
}

// referencingRules maps each target group to rules owned by other groups that
// point at it. A listing failure is logged and yields no rules.
func (r *Resolver) referencingRules(ctx context.Context, targets sets.Set[string]) map[string][]vpc.SecurityGroupRule {
	rules, err := r.network.ListSecurityGroupRules(ctx, "")
	if err != nil {
		r.logger.WithError(err).Warn("could not list rules referencing deleted groups")
		return nil
	}
	byTarget := make(map[string][]vpc.SecurityGroupRule)
	for _, rule := range rules {
		if rule.ReferencedGroupID == "" || rule.ReferencedGroupID == rule.GroupID {
			continue
		}
		if targets.Has(rule.ReferencedGroupID) {
			byTarget[rule.ReferencedGroupID] = append(byTarget[rule.ReferencedGroupID], rule)
		}
	}
	return byTarget
}

func (r *Resolver) deleteSecurityGroup(ctx context.Context, groupID string, opts DeleteOptions, referencing []vpc.SecurityGroupRule) Outcome {
	logger := r.logger.WithField("group_id", groupID)

	if strings.TrimSpace(groupID) == "" {
		return Outcome{ID: groupID, Status: StatusFailed, Err: fmt.Errorf("%w: empty security group id", ErrValidation)}
	}
	if opts.DryRun {
		logger.Info("dry run, skipping security group")
		return Outcome{ID: groupID, Status: StatusSkipped}
	}

	for owner, rules := range groupRulesByOwner(referencing) {
		for _, rule := range rules {
			logger.WithFields(log.Fields{
				"owner_id": owner,
				"rule":     rule.Summary(),
			}).Debug("revoking referencing rule")
		}
		if err := r.revokeRules(ctx, owner, rules); err != nil {
			logger.WithError(err).WithField("owner_id", owner).Warn("failed to revoke referencing rules")
		}
	}

	rules, err := r.network.ListSecurityGroupRules(ctx, groupID)
	if err == nil {
		err = r.revokeRules(ctx, groupID, rules)
	}
	switch {
	case err == nil:
	case awserr.IsGroupNotFound(err):
		logger.WithError(err).Info("security group already deleted")
		return Outcome{ID: groupID, Status: StatusAlreadyGone}
	default:
		logger.WithError(err).Warn("failed to revoke security group rules")
	}

	err = r.network.DeleteSecurityGroup(ctx, groupID)
	switch {
	case err == nil:
		logger.Info("deleted security group")
		return Outcome{ID: groupID, Status: StatusDeleted}
	case awserr.IsNotFound(err):
		logger.WithError(err).Info("security group already deleted")
		return Outcome{ID: groupID, Status: StatusAlreadyGone}
	case awserr.IsInUse(err):
		logger.WithError(err).Error("security group still in use")
		return Outcome{ID: groupID, Status: StatusFailed, Err: fmt.Errorf("%w: %s: %w", ErrInUse, groupID, err)}
	default:
		logger.WithError(err).Error("failed to delete security group")
		return Outcome{ID: groupID, Status: StatusFailed, Err: fmt.Errorf("%s: %w", groupID, err)}
	}
}

// revokeRules revokes egress and ingress rules in separate calls and skips a
// direction with no rules. A rule that vanished in the meantime is logged and
// does not stop the other direction; a vanished group stops both.
func (r *Resolver) revokeRules(ctx context.Context, groupID string, rules []vpc.SecurityGroupRule) error {
	var egress, ingress []string
	for _, rule := range rules {
		if rule.IsEgress {
			egress = append(egress, rule.RuleID)
		} else {
			ingress = append(ingress, rule.RuleID)
		}
	}

	directions := []struct {
		name    string
		ruleIDs []string
		revoke  func(context.Context, string, []string) error
	}{
		{"egress", egress, r.network.RevokeEgressRules},
		{"ingress", ingress, r.network.RevokeIngressRules},
	}

	var errs []error
	for _, d := range directions {
		if len(d.ruleIDs) == 0 {
			continue
		}
		logger := r.logger.WithFields(log.Fields{
			"group_id":  groupID,
			"direction": d.name,
			"rules":     len(d.ruleIDs),
		})
		err := d.revoke(ctx, groupID, d.ruleIDs)
		switch {
		case err == nil:
			logger.Debug("revoked security group rules")
		case awserr.IsGroupNotFound(err):
			return err
		case awserr.IsNotFound(err):
			logger.WithError(err).Info("security group rule already revoked")
		default:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func groupRulesByOwner(rules []vpc.SecurityGroupRule) map[string][]vpc.SecurityGroupRule {
	byOwner := make(map[string][]vpc.SecurityGroupRule)
	for _, rule := range rules {
		byOwner[rule.GroupID] = append(byOwner[rule.GroupID], rule)
	}
	return byOwner
}
