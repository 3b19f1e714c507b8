package session

import (
	"github.com/newtron-network/netedit/pkg/topology"
)

// Mode is the active workflow. Exactly one is active at a time.
type Mode string

const (
	ModeNone           Mode = "none"
	ModeSingle         Mode = "single"
	ModeMulti          Mode = "multi"
	ModeAdd            Mode = "add"
	ModeDelete         Mode = "delete"
	ModeEdit           Mode = "edit"
	ModeCreatePhysical Mode = "create-physical"
	ModeCreateBond     Mode = "create-bond"
	ModeCreateBridge   Mode = "create-bridge"
)

// IsSelecting returns true for the modes driven only by the selection.
func (m Mode) IsSelecting() bool {
	return m == ModeNone || m == ModeSingle || m == ModeMulti
}

// modeForSelection is the selecting mode matching a selection size.
func modeForSelection(sel Selection) Mode {
	switch len(sel) {
	case 0:
		return ModeNone
	case 1:
		return ModeSingle
	default:
		return ModeMulti
	}
}

// Selection is the ordered set of selected row keys. The first key is the
// primary for bond and bridge drafts.
type Selection []topology.RowKey

// Has reports whether key is selected.
func (s Selection) Has(key topology.RowKey) bool {
	for _, k := range s {
		if k == key {
			return true
		}
	}
	return false
}

// With returns a copy with key appended.
func (s Selection) With(key topology.RowKey) Selection {
	out := make(Selection, len(s), len(s)+1)
	copy(out, s)
	return append(out, key)
}

// Without returns a copy with key removed.
func (s Selection) Without(key topology.RowKey) Selection {
	out := make(Selection, 0, len(s))
	for _, k := range s {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}
