package health

import (
	"errors"
	"strings"
	"testing"

	"github.com/newtron-network/netedit/internal/testutil"
	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/util"
)

func TestRun_CleanSnapshot(t *testing.T) {
	report := NewChecker().Run(testutil.NodeSnapshot())
	if report.Overall != StatusOK {
		t.Errorf("Overall = %q, want ok: %+v", report.Overall, report.Results)
	}
	if report.Node != "abc123" {
		t.Errorf("Node = %q", report.Node)
	}
	if len(report.Results) != 4 {
		t.Errorf("got %d results, want 4", len(report.Results))
	}
}

func TestRun_Problems(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(snap *model.Snapshot)
		check   string
		want    Status
		problem string
	}{
		{
			name: "duplicate MAC",
			mutate: func(snap *model.Snapshot) {
				snap.Interfaces[testutil.IfaceEth3-1].MACAddress = "52:54:00:00:00:01"
			},
			check: "addresses", want: StatusCritical, problem: "already used by eth0",
		},
		{
			name: "IP outside subnet",
			mutate: func(snap *model.Snapshot) {
				snap.Interfaces[0].Links[0].IPAddress = "10.9.9.9"
			},
			check: "addresses", want: StatusCritical, problem: "is not inside 192.168.122.0/24",
		},
		{
			name: "missing VLAN",
			mutate: func(snap *model.Snapshot) {
				snap.Interfaces[testutil.IfaceEth3-1].VLANID = model.IntPtr(9999)
			},
			check: "references", want: StatusWarning, problem: "VLAN 9999 does not exist",
		},
		{
			name: "missing subnet",
			mutate: func(snap *model.Snapshot) {
				snap.Subnets = snap.Subnets[:1]
			},
			check: "references", want: StatusWarning, problem: "uses missing subnet",
		},
		{
			name: "empty bond",
			mutate: func(snap *model.Snapshot) {
				snap.Interfaces[testutil.IfaceBond0-1].Parents = nil
			},
			check: "composites", want: StatusWarning, problem: "has no members",
		},
		{
			name: "no boot interface",
			mutate: func(snap *model.Snapshot) {
				snap.Interfaces[0].IsBoot = false
			},
			check: "boot", want: StatusWarning, problem: "no boot interface",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := testutil.NodeSnapshot()
			tt.mutate(snap)

			result, err := NewChecker().RunCheck(snap, tt.check)
			if err != nil {
				t.Fatalf("RunCheck: %v", err)
			}
			if result.Status != tt.want {
				t.Errorf("Status = %q, want %q", result.Status, tt.want)
			}
			found := false
			for _, p := range result.Problems {
				if strings.Contains(p, tt.problem) {
					found = true
				}
			}
			if !found {
				t.Errorf("Problems = %q, want one containing %q", result.Problems, tt.problem)
			}
		})
	}
}

func TestRun_WorstWins(t *testing.T) {
	snap := testutil.NodeSnapshot()
	snap.Interfaces[0].IsBoot = false
	snap.Interfaces[testutil.IfaceEth3-1].MACAddress = "52:54:00:00:00:02"

	if got := NewChecker().Run(snap).Overall; got != StatusCritical {
		t.Errorf("Overall = %q, want critical", got)
	}
}

func TestRunCheck_Unknown(t *testing.T) {
	_, err := NewChecker().RunCheck(testutil.NodeSnapshot(), "bgp")
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
