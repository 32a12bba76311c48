package cleanup

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/aws/smithy-go"

	"tasnim.dev/aws-sweep/internal/aws/efs"
	"tasnim.dev/aws-sweep/internal/aws/vpc"
	"tasnim.dev/aws-sweep/internal/retry"
)

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func newTestLogger() (*log.Logger, *memory.Handler) {
	h := memory.New()
	return &log.Logger{Handler: h, Level: log.DebugLevel}, h
}

func fastPoll(maxRetries int) retry.Config {
	return retry.Config{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	}
}

// fakeNetwork is an in-memory VPC account. Errors keyed "Method:id" are
// returned instead of the normal behaviour.
type fakeNetwork struct {
	mu sync.Mutex

	vpcs      map[string]vpc.VPCInfo
	groups    map[string]vpc.SecurityGroupInfo
	rules     map[string][]vpc.SecurityGroupRule
	enis      []vpc.NetworkInterfaceInfo
	subnets   map[string]vpc.SubnetInfo
	nats      map[string]string // gateway id -> vpc id
	endpoints map[string]string // endpoint id -> vpc id
	igws      map[string]string // gateway id -> attached vpc id

	// natLingers is how many listings a deleted NAT gateway keeps showing up
	// in. A negative value means forever.
	natLingers int
	natDeleted map[string]int

	errs  map[string]error
	calls []string
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		vpcs:       make(map[string]vpc.VPCInfo),
		groups:     make(map[string]vpc.SecurityGroupInfo),
		rules:      make(map[string][]vpc.SecurityGroupRule),
		subnets:    make(map[string]vpc.SubnetInfo),
		nats:       make(map[string]string),
		endpoints:  make(map[string]string),
		igws:       make(map[string]string),
		natDeleted: make(map[string]int),
		errs:       make(map[string]error),
	}
}

func (f *fakeNetwork) addVPC(id, state string) {
	f.vpcs[id] = vpc.VPCInfo{VPCID: id, State: state}
}

func (f *fakeNetwork) addGroup(id, vpcID, name, description string) {
	f.groups[id] = vpc.SecurityGroupInfo{GroupID: id, VPCID: vpcID, Name: name, Description: description}
}

func (f *fakeNetwork) addRule(groupID, ruleID string, egress bool, referenced string) {
	f.rules[groupID] = append(f.rules[groupID], vpc.SecurityGroupRule{
		RuleID:            ruleID,
		GroupID:           groupID,
		IsEgress:          egress,
		ReferencedGroupID: referenced,
	})
}

func (f *fakeNetwork) record(call string) error {
	f.calls = append(f.calls, call)
	return f.errs[call]
}

func (f *fakeNetwork) callsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeNetwork) ListVPCs(ctx context.Context) ([]vpc.VPCInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListVPCs"); err != nil {
		return nil, err
	}
	out := make([]vpc.VPCInfo, 0, len(f.vpcs))
	for _, v := range f.vpcs {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VPCID < out[j].VPCID })
	return out, nil
}

func (f *fakeNetwork) ListSubnets(ctx context.Context, vpcID string) ([]vpc.SubnetInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListSubnets:" + vpcID); err != nil {
		return nil, err
	}
	var out []vpc.SubnetInfo
	for _, s := range f.subnets {
		if s.VPCID == vpcID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubnetID < out[j].SubnetID })
	return out, nil
}

func (f *fakeNetwork) ListSecurityGroups(ctx context.Context, vpcID string) ([]vpc.SecurityGroupInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListSecurityGroups:" + vpcID); err != nil {
		return nil, err
	}
	var out []vpc.SecurityGroupInfo
	for _, sg := range f.groups {
		if vpcID == "" || sg.VPCID == vpcID {
			out = append(out, sg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out, nil
}

func (f *fakeNetwork) ListSecurityGroupRules(ctx context.Context, groupID string) ([]vpc.SecurityGroupRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListSecurityGroupRules:" + groupID); err != nil {
		return nil, err
	}
	if groupID != "" {
		return append([]vpc.SecurityGroupRule(nil), f.rules[groupID]...), nil
	}
	var out []vpc.SecurityGroupRule
	for _, rules := range f.rules {
		out = append(out, rules...)
	}
	return out, nil
}

func (f *fakeNetwork) ListNetworkInterfaces(ctx context.Context, vpcID string) ([]vpc.NetworkInterfaceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListNetworkInterfaces:" + vpcID); err != nil {
		return nil, err
	}
	var out []vpc.NetworkInterfaceInfo
	for _, eni := range f.enis {
		if eni.VPCID == vpcID {
			out = append(out, eni)
		}
	}
	return out, nil
}

func (f *fakeNetwork) ListInternetGateways(ctx context.Context, vpcID string) ([]vpc.InternetGatewayInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListInternetGateways:" + vpcID); err != nil {
		return nil, err
	}
	var out []vpc.InternetGatewayInfo
	for id, attached := range f.igws {
		if attached == vpcID {
			out = append(out, vpc.InternetGatewayInfo{GatewayID: id})
		}
	}
	return out, nil
}

func (f *fakeNetwork) ListNATGateways(ctx context.Context, vpcID string) ([]vpc.NATGatewayInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListNATGateways:" + vpcID); err != nil {
		return nil, err
	}
	var out []vpc.NATGatewayInfo
	for id, owner := range f.nats {
		if owner != vpcID {
			continue
		}
		seen, deleted := f.natDeleted[id]
		if !deleted {
			out = append(out, vpc.NATGatewayInfo{GatewayID: id, State: "available"})
			continue
		}
		if f.natLingers < 0 || seen < f.natLingers {
			f.natDeleted[id] = seen + 1
			out = append(out, vpc.NATGatewayInfo{GatewayID: id, State: "deleting"})
			continue
		}
		delete(f.nats, id)
	}
	return out, nil
}

func (f *fakeNetwork) ListVPCEndpoints(ctx context.Context, vpcID string) ([]vpc.VPCEndpointInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListVPCEndpoints:" + vpcID); err != nil {
		return nil, err
	}
	var out []vpc.VPCEndpointInfo
	for id, owner := range f.endpoints {
		if owner == vpcID {
			out = append(out, vpc.VPCEndpointInfo{EndpointID: id})
		}
	}
	return out, nil
}

func (f *fakeNetwork) revoke(call, groupID string, ruleIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(call + ":" + groupID); err != nil {
		return err
	}
	if _, ok := f.groups[groupID]; !ok {
		return apiError("InvalidGroup.NotFound")
	}
	drop := make(map[string]bool, len(ruleIDs))
	for _, id := range ruleIDs {
		drop[id] = true
	}
	var kept []vpc.SecurityGroupRule
	for _, rule := range f.rules[groupID] {
		if !drop[rule.RuleID] {
			kept = append(kept, rule)
		}
	}
	f.rules[groupID] = kept
	return nil
}

func (f *fakeNetwork) RevokeEgressRules(ctx context.Context, groupID string, ruleIDs []string) error {
	return f.revoke("RevokeEgressRules", groupID, ruleIDs)
}

func (f *fakeNetwork) RevokeIngressRules(ctx context.Context, groupID string, ruleIDs []string) error {
	return f.revoke("RevokeIngressRules", groupID, ruleIDs)
}

func (f *fakeNetwork) DeleteSecurityGroup(ctx context.Context, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteSecurityGroup:" + groupID); err != nil {
		return err
	}
	if _, ok := f.groups[groupID]; !ok {
		return apiError("InvalidGroup.NotFound")
	}
	for owner, rules := range f.rules {
		if owner == groupID {
			continue
		}
		for _, rule := range rules {
			if rule.ReferencedGroupID == groupID {
				return apiError("DependencyViolation")
			}
		}
	}
	for _, eni := range f.enis {
		for _, id := range eni.GroupIDs {
			if id == groupID {
				return apiError("DependencyViolation")
			}
		}
	}
	delete(f.groups, groupID)
	delete(f.rules, groupID)
	return nil
}

func (f *fakeNetwork) DeleteSubnet(ctx context.Context, subnetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteSubnet:" + subnetID); err != nil {
		return err
	}
	if _, ok := f.subnets[subnetID]; !ok {
		return apiError("InvalidSubnetID.NotFound")
	}
	delete(f.subnets, subnetID)
	return nil
}

func (f *fakeNetwork) DeleteNATGateway(ctx context.Context, gatewayID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteNATGateway:" + gatewayID); err != nil {
		return err
	}
	if _, ok := f.nats[gatewayID]; !ok {
		return apiError("NatGatewayNotFound")
	}
	if _, ok := f.natDeleted[gatewayID]; !ok {
		f.natDeleted[gatewayID] = 0
	}
	return nil
}

func (f *fakeNetwork) DeleteVPCEndpoints(ctx context.Context, endpointIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteVPCEndpoints"); err != nil {
		return err
	}
	for _, id := range endpointIDs {
		delete(f.endpoints, id)
	}
	return nil
}

func (f *fakeNetwork) DetachInternetGateway(ctx context.Context, gatewayID, vpcID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DetachInternetGateway:" + gatewayID); err != nil {
		return err
	}
	if f.igws[gatewayID] != vpcID {
		return apiError("Gateway.NotAttached")
	}
	f.igws[gatewayID] = ""
	return nil
}

func (f *fakeNetwork) DeleteInternetGateway(ctx context.Context, gatewayID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteInternetGateway:" + gatewayID); err != nil {
		return err
	}
	if _, ok := f.igws[gatewayID]; !ok {
		return apiError("InvalidInternetGatewayID.NotFound")
	}
	delete(f.igws, gatewayID)
	return nil
}

func (f *fakeNetwork) DeleteVPC(ctx context.Context, vpcID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteVPC:" + vpcID); err != nil {
		return err
	}
	if _, ok := f.vpcs[vpcID]; !ok {
		return apiError("InvalidVpcID.NotFound")
	}
	for _, sg := range f.groups {
		if sg.VPCID == vpcID && !sg.IsDefault() {
			return apiError("DependencyViolation")
		}
	}
	for _, s := range f.subnets {
		if s.VPCID == vpcID {
			return apiError("DependencyViolation")
		}
	}
	delete(f.vpcs, vpcID)
	for id, sg := range f.groups {
		if sg.VPCID == vpcID {
			delete(f.groups, id)
		}
	}
	return nil
}

// fakeFileSystems is an in-memory EFS account.
type fakeFileSystems struct {
	mu sync.Mutex

	fileSystems  map[string]efs.FileSystemInfo
	mountTargets map[string][]string // file system id -> mount target ids

	// lingerForever keeps deleted mount targets listed.
	lingerForever bool
	pendingMounts map[string]bool

	errs  map[string]error
	calls []string
}

func newFakeFileSystems() *fakeFileSystems {
	return &fakeFileSystems{
		fileSystems:   make(map[string]efs.FileSystemInfo),
		mountTargets:  make(map[string][]string),
		pendingMounts: make(map[string]bool),
		errs:          make(map[string]error),
	}
}

func (f *fakeFileSystems) add(id, token, tagValue string, mounts ...string) {
	f.fileSystems[id] = efs.FileSystemInfo{
		FileSystemID:  id,
		CreationToken: token,
		Tags:          map[string]string{"ManagedByAmazonSageMakerResource": tagValue},
	}
	f.mountTargets[id] = mounts
}

func (f *fakeFileSystems) record(call string) error {
	f.calls = append(f.calls, call)
	return f.errs[call]
}

func (f *fakeFileSystems) ListFileSystems(ctx context.Context) ([]efs.FileSystemInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListFileSystems"); err != nil {
		return nil, err
	}
	out := make([]efs.FileSystemInfo, 0, len(f.fileSystems))
	for _, fs := range f.fileSystems {
		out = append(out, fs)
	}
	return out, nil
}

func (f *fakeFileSystems) ListMountTargets(ctx context.Context, fileSystemID string) ([]efs.MountTargetInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListMountTargets:" + fileSystemID); err != nil {
		return nil, err
	}
	if _, ok := f.fileSystems[fileSystemID]; !ok {
		return nil, apiError("FileSystemNotFound")
	}
	var out []efs.MountTargetInfo
	var kept []string
	for _, id := range f.mountTargets[fileSystemID] {
		if f.pendingMounts[id] && !f.lingerForever {
			// Gone on the first listing after deletion.
			delete(f.pendingMounts, id)
			continue
		}
		kept = append(kept, id)
		out = append(out, efs.MountTargetInfo{MountTargetID: id, FileSystemID: fileSystemID})
	}
	f.mountTargets[fileSystemID] = kept
	return out, nil
}

func (f *fakeFileSystems) DeleteMountTarget(ctx context.Context, mountTargetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteMountTarget:" + mountTargetID); err != nil {
		return err
	}
	f.pendingMounts[mountTargetID] = true
	return nil
}

func (f *fakeFileSystems) DeleteFileSystem(ctx context.Context, fileSystemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteFileSystem:" + fileSystemID); err != nil {
		return err
	}
	if _, ok := f.fileSystems[fileSystemID]; !ok {
		return apiError("FileSystemNotFound")
	}
	if len(f.mountTargets[fileSystemID]) > 0 {
		return apiError("FileSystemInUse")
	}
	delete(f.fileSystems, fileSystemID)
	return nil
}
