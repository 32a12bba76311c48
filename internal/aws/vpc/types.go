package vpc

type VPCInfo struct {
	VPCID     string
	Name      string
	CIDR      string
	IsDefault bool
	State     string // pending, available
}

type SubnetInfo struct {
	SubnetID     string
	VPCID        string
	Name         string
	CIDR         string
	AZ           string
	AvailableIPs int
}

type SecurityGroupInfo struct {
	GroupID       string
	VPCID         string
	Name          string
	Description   string
	InboundRules  int
	OutboundRules int
}

// IsDefault reports whether this is the VPC's default group, which AWS
// refuses to delete.
func (s SecurityGroupInfo) IsDefault() bool {
	return s.Name == "default"
}

type SecurityGroupRule struct {
	RuleID            string
	GroupID           string
	IsEgress          bool
	ReferencedGroupID string // set when the peer is another security group
	Protocol          string // TCP, UDP, ICMP, All, or number
	PortRange         string // "80", "80-443", "All"
	Peer              string // CIDR, security group ID, or prefix list
	Description       string
}

type NetworkInterfaceInfo struct {
	InterfaceID string
	VPCID       string
	SubnetID    string
	Description string
	Status      string // available, in-use
	GroupIDs    []string
}

type InternetGatewayInfo struct {
	GatewayID string
	Name      string
	State     string
}

type NATGatewayInfo struct {
	GatewayID string
	Name      string
	State     string // available, pending, failed, deleting
	Type      string // public, private
	SubnetID  string
	ElasticIP string
	PrivateIP string
}

type VPCEndpointInfo struct {
	EndpointID    string
	ServiceName   string
	Type          string // Interface, Gateway, GatewayLoadBalancer
	State         string
	SubnetIDs     []string
	RouteTableIDs []string
}
