package source

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/util"
)

// LoadFixture reads a YAML snapshot file. Children are derived from the
// parent lists, so fixtures only need to spell out parents.
func LoadFixture(path string) (*model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}

	var snap model.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	if err := checkFixture(&snap); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	sortSnapshot(&snap)
	snap.FillChildren()
	return &snap, nil
}

// SaveFixture writes snap as YAML.
func SaveFixture(path string, snap *model.Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing fixture %s: %w", path, err)
	}
	return nil
}

func checkFixture(snap *model.Snapshot) error {
	seen := make(map[int]bool, len(snap.Interfaces))
	for _, iface := range snap.Interfaces {
		if seen[iface.ID] {
			return fmt.Errorf("duplicate interface id %d", iface.ID)
		}
		seen[iface.ID] = true
		if _, err := model.ParseInterfaceType(string(iface.Type)); err != nil {
			return fmt.Errorf("interface %d: %w", iface.ID, err)
		}
		for _, l := range iface.Links {
			if _, err := model.ParseLinkMode(string(l.Mode)); err != nil {
				return fmt.Errorf("interface %d link %d: %w", iface.ID, l.ID, err)
			}
		}
	}
	return nil
}

// FixtureSource serves a YAML fixture, re-reading the file on every call
// so edits show up in a running watch.
type FixtureSource struct {
	Path string
}

// Snapshot implements Source. An empty systemID matches the fixture's node.
func (f *FixtureSource) Snapshot(_ context.Context, systemID string) (*model.Snapshot, error) {
	snap, err := LoadFixture(f.Path)
	if err != nil {
		return nil, err
	}
	if systemID != "" && systemID != snap.Node.SystemID {
		return nil, fmt.Errorf("node %s: %w", systemID, util.ErrNotFound)
	}
	return snap, nil
}
