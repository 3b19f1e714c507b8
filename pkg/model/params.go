package model

// BondMode is the kernel bonding mode.
type BondMode string

const (
	BondModeBalanceRR    BondMode = "balance-rr"
	BondModeActiveBackup BondMode = "active-backup"
	BondModeBalanceXOR   BondMode = "balance-xor"
	BondModeBroadcast    BondMode = "broadcast"
	BondMode8023AD       BondMode = "802.3ad"
	BondModeBalanceTLB   BondMode = "balance-tlb"
	BondModeBalanceALB   BondMode = "balance-alb"
)

// BondModes lists the accepted bonding modes in display order.
var BondModes = []BondMode{
	BondModeBalanceRR, BondModeActiveBackup, BondModeBalanceXOR, BondModeBroadcast,
	BondMode8023AD, BondModeBalanceTLB, BondModeBalanceALB,
}

// LACPRate is how often LACPDUs are requested from the partner.
type LACPRate string

const (
	LACPRateSlow LACPRate = "slow"
	LACPRateFast LACPRate = "fast"
)

// LACPRates lists the accepted LACP rates.
var LACPRates = []LACPRate{LACPRateSlow, LACPRateFast}

// XmitHashPolicy selects the transmit hash for balance-xor, 802.3ad and tlb.
type XmitHashPolicy string

const (
	XmitHashLayer2   XmitHashPolicy = "layer2"
	XmitHashLayer2_3 XmitHashPolicy = "layer2+3"
	XmitHashLayer3_4 XmitHashPolicy = "layer3+4"
	XmitHashEncap2_3 XmitHashPolicy = "encap2+3"
	XmitHashEncap3_4 XmitHashPolicy = "encap3+4"
)

// XmitHashPolicies lists the accepted transmit hash policies.
var XmitHashPolicies = []XmitHashPolicy{
	XmitHashLayer2, XmitHashLayer2_3, XmitHashLayer3_4, XmitHashEncap2_3, XmitHashEncap3_4,
}

// BondParams holds bond_* settings.
type BondParams struct {
	Mode           BondMode       `json:"bond_mode" yaml:"bond_mode"`
	MIIMon         int            `json:"bond_miimon" yaml:"bond_miimon"`
	UpDelay        int            `json:"bond_updelay" yaml:"bond_updelay"`
	DownDelay      int            `json:"bond_downdelay" yaml:"bond_downdelay"`
	LACPRate       LACPRate       `json:"bond_lacp_rate" yaml:"bond_lacp_rate"`
	XmitHashPolicy XmitHashPolicy `json:"bond_xmit_hash_policy" yaml:"bond_xmit_hash_policy"`
	NumGratARP     int            `json:"bond_num_grat_arp" yaml:"bond_num_grat_arp"`
}

// DefaultBondParams returns the settings a new bond starts with.
func DefaultBondParams() BondParams {
	return BondParams{
		Mode:           BondModeBalanceRR,
		MIIMon:         100,
		LACPRate:       LACPRateSlow,
		XmitHashPolicy: XmitHashLayer2,
		NumGratARP:     1,
	}
}

// BridgeType is the bridge implementation.
type BridgeType string

const (
	BridgeTypeStandard BridgeType = "standard"
	BridgeTypeOVS      BridgeType = "ovs"
)

// BridgeTypes lists the accepted bridge implementations.
var BridgeTypes = []BridgeType{BridgeTypeStandard, BridgeTypeOVS}

// DefaultBridgeFD is the default bridge forward delay in seconds.
const DefaultBridgeFD = 15

// BridgeParams holds bridge_* settings.
type BridgeParams struct {
	Type BridgeType `json:"bridge_type" yaml:"bridge_type"`
	STP  bool       `json:"bridge_stp" yaml:"bridge_stp"`
	FD   int        `json:"bridge_fd" yaml:"bridge_fd"`
}

// DefaultBridgeParams returns the settings a new bridge starts with.
func DefaultBridgeParams() BridgeParams {
	return BridgeParams{Type: BridgeTypeStandard, FD: DefaultBridgeFD}
}
