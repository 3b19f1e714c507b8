// Package health reports inconsistencies in a node's snapshot: references
// the editor has to tolerate, and address conflicts a commit would be
// rejected for.
package health

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/util"
)

// Status represents the health status of a component
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Result represents the result of a health check
type Result struct {
	Check    string        `json:"check"`
	Status   Status        `json:"status"`
	Message  string        `json:"message"`
	Problems []string      `json:"problems,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report contains all health check results for a node
type Report struct {
	Node      string        `json:"node"`
	Timestamp time.Time     `json:"timestamp"`
	Overall   Status        `json:"overall"`
	Results   []Result      `json:"results"`
	Duration  time.Duration `json:"duration"`
}

// Check inspects one aspect of a snapshot and lists what is wrong with it.
type Check interface {
	Name() string
	// Severity is the status reported when Problems is not empty.
	Severity() Status
	Problems(snap *model.Snapshot) []string
}

// Checker runs health checks on a snapshot
type Checker struct {
	checks []Check
}

// NewChecker creates a checker with the default checks.
func NewChecker() *Checker {
	return &Checker{
		checks: []Check{
			ReferenceCheck{},
			AddressCheck{},
			CompositeCheck{},
			BootCheck{},
		},
	}
}

// Run executes all health checks and returns a report
func (c *Checker) Run(snap *model.Snapshot) *Report {
	start := time.Now()
	report := &Report{
		Node:      snap.Node.SystemID,
		Timestamp: start,
		Results:   make([]Result, 0, len(c.checks)),
		Overall:   StatusOK,
	}
	for _, check := range c.checks {
		result := run(check, snap)
		report.Results = append(report.Results, result)

		// worst wins
		if result.Status == StatusCritical {
			report.Overall = StatusCritical
		} else if result.Status == StatusWarning && report.Overall != StatusCritical {
			report.Overall = StatusWarning
		}
	}
	report.Duration = time.Since(start)
	util.WithNode(report.Node).Debugf("Health %s in %v", report.Overall, report.Duration)
	return report
}

// RunCheck runs a specific health check by name
func (c *Checker) RunCheck(snap *model.Snapshot, name string) (*Result, error) {
	for _, check := range c.checks {
		if check.Name() == name {
			result := run(check, snap)
			return &result, nil
		}
	}
	return nil, fmt.Errorf("health check '%s': %w", name, util.ErrNotFound)
}

func run(check Check, snap *model.Snapshot) Result {
	start := time.Now()
	problems := check.Problems(snap)
	result := Result{
		Check:    check.Name(),
		Status:   StatusOK,
		Message:  "no problems",
		Problems: problems,
	}
	if len(problems) > 0 {
		result.Status = check.Severity()
		result.Message = fmt.Sprintf("%d problem(s)", len(problems))
	}
	result.Duration = time.Since(start)
	return result
}

func index(snap *model.Snapshot) map[int]*model.Interface {
	byID := make(map[int]*model.Interface, len(snap.Interfaces))
	for n := range snap.Interfaces {
		byID[snap.Interfaces[n].ID] = &snap.Interfaces[n]
	}
	return byID
}

// ReferenceCheck finds parents, VLANs, fabrics and subnets that are
// referenced but not present. The row model shows these as empty cells.
type ReferenceCheck struct{}

func (ReferenceCheck) Name() string     { return "references" }
func (ReferenceCheck) Severity() Status { return StatusWarning }

func (ReferenceCheck) Problems(snap *model.Snapshot) []string {
	byID := index(snap)
	vlans := map[int]*model.VLAN{}
	for n := range snap.VLANs {
		vlans[snap.VLANs[n].ID] = &snap.VLANs[n]
	}
	fabrics := map[int]bool{}
	for _, f := range snap.Fabrics {
		fabrics[f.ID] = true
	}
	subnets := map[int]bool{}
	for _, s := range snap.Subnets {
		subnets[s.ID] = true
	}

	var problems []string
	for _, iface := range snap.Interfaces {
		for _, pid := range iface.Parents {
			if _, ok := byID[pid]; !ok {
				problems = append(problems, fmt.Sprintf("%s: parent %d does not exist", iface.Name, pid))
			}
		}
		if iface.VLANID != nil {
			if v, ok := vlans[*iface.VLANID]; !ok {
				problems = append(problems, fmt.Sprintf("%s: VLAN %d does not exist", iface.Name, *iface.VLANID))
			} else if !fabrics[v.FabricID] {
				problems = append(problems, fmt.Sprintf("%s: VLAN %d is on missing fabric %d", iface.Name, v.ID, v.FabricID))
			}
		}
		for _, l := range iface.Links {
			if l.SubnetID != nil && !subnets[*l.SubnetID] {
				problems = append(problems, fmt.Sprintf("%s: link %d uses missing subnet %d", iface.Name, l.ID, *l.SubnetID))
			}
		}
	}
	return problems
}

// AddressCheck finds duplicate physical MACs, duplicate static IPs and
// static IPs outside their subnet.
type AddressCheck struct{}

func (AddressCheck) Name() string     { return "addresses" }
func (AddressCheck) Severity() Status { return StatusCritical }

func (AddressCheck) Problems(snap *model.Snapshot) []string {
	cidrs := map[int]string{}
	for _, s := range snap.Subnets {
		cidrs[s.ID] = s.CIDR
	}

	var problems []string
	macs := map[string]string{}
	ips := map[string]string{}
	for _, iface := range snap.Interfaces {
		if iface.Type == model.TypePhysical && iface.MACAddress != "" {
			mac := strings.ToLower(iface.MACAddress)
			if other, ok := macs[mac]; ok {
				problems = append(problems, fmt.Sprintf("%s: MAC %s already used by %s", iface.Name, mac, other))
			} else {
				macs[mac] = iface.Name
			}
		}
		for _, l := range iface.Links {
			if l.IPAddress == "" {
				continue
			}
			if other, ok := ips[l.IPAddress]; ok {
				problems = append(problems, fmt.Sprintf("%s: IP %s already used by %s", iface.Name, l.IPAddress, other))
			} else {
				ips[l.IPAddress] = iface.Name
			}
			if l.SubnetID == nil {
				continue
			}
			if cidr, ok := cidrs[*l.SubnetID]; ok {
				if in, err := util.AddressInCIDR(l.IPAddress, cidr); err != nil || !in {
					problems = append(problems, fmt.Sprintf("%s: IP %s is not inside %s", iface.Name, l.IPAddress, cidr))
				}
			}
		}
	}
	return problems
}

// CompositeCheck finds bonds and bridges with no members, bridges with
// more than one, and interfaces claimed by two composites.
type CompositeCheck struct{}

func (CompositeCheck) Name() string     { return "composites" }
func (CompositeCheck) Severity() Status { return StatusWarning }

func (CompositeCheck) Problems(snap *model.Snapshot) []string {
	var problems []string
	owner := map[int]string{}
	for _, iface := range snap.Interfaces {
		if !iface.Type.IsComposite() {
			continue
		}
		switch {
		case len(iface.Parents) == 0:
			problems = append(problems, fmt.Sprintf("%s: %s has no members", iface.Name, iface.Type))
		case iface.Type.IsBridge() && len(iface.Parents) > 1:
			problems = append(problems, fmt.Sprintf("%s: bridge has %d members", iface.Name, len(iface.Parents)))
		}
		for _, pid := range iface.Parents {
			if other, ok := owner[pid]; ok {
				problems = append(problems, fmt.Sprintf("%s: member %d is also in %s", iface.Name, pid, other))
				continue
			}
			owner[pid] = iface.Name
		}
	}
	return problems
}

// BootCheck expects exactly one boot interface, and it must be physical.
type BootCheck struct{}

func (BootCheck) Name() string     { return "boot" }
func (BootCheck) Severity() Status { return StatusWarning }

func (BootCheck) Problems(snap *model.Snapshot) []string {
	var boot []string
	var problems []string
	for _, iface := range snap.Interfaces {
		if !iface.IsBoot {
			continue
		}
		boot = append(boot, iface.Name)
		if iface.Type != model.TypePhysical {
			problems = append(problems, fmt.Sprintf("%s: boot interface is a %s", iface.Name, iface.Type))
		}
	}
	slices.Sort(boot)
	switch len(boot) {
	case 0:
		problems = append(problems, "no boot interface")
	case 1:
	default:
		problems = append(problems, "several boot interfaces: "+strings.Join(boot, ", "))
	}
	return problems
}
