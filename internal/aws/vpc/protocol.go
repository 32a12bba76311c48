package vpc

import "fmt"

// NormalizeProtocol converts AWS numeric protocol strings to readable names.
func NormalizeProtocol(protocol string) string {
	switch protocol {
	case "-1":
		return "All"
	case "1":
		return "ICMP"
	case "6":
		return "TCP"
	case "17":
		return "UDP"
	case "58":
		return "ICMPv6"
	default:
		return protocol
	}
}

// Summary describes a rule in one line, e.g. "ingress TCP 443 from sg-123".
func (r SecurityGroupRule) Summary() string {
	direction, preposition := "ingress", "from"
	if r.IsEgress {
		direction, preposition = "egress", "to"
	}
	peer := r.Peer
	if r.ReferencedGroupID != "" {
		peer = r.ReferencedGroupID
	}
	if peer == "" {
		peer = "-"
	}
	return fmt.Sprintf("%s %s %s %s %s", direction, r.Protocol, r.PortRange, preposition, peer)
}
