package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/util"
)

// RedisDB reads and writes the network model kept in Redis.
type RedisDB struct {
	client *redis.Client
}

// NewRedisDB creates a client for the given address and database index.
func NewRedisDB(addr string, db int) *RedisDB {
	return &RedisDB{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
	}
}

// NewRedisDBFromClient wraps an existing client.
func NewRedisDBFromClient(client *redis.Client) *RedisDB {
	return &RedisDB{client: client}
}

// Connect tests the connection
func (c *RedisDB) Connect(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the connection
func (c *RedisDB) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client.
func (c *RedisDB) Client() *redis.Client {
	return c.client
}

// Snapshot reads the interfaces of one node together with every VLAN,
// fabric and subnet.
func (c *RedisDB) Snapshot(ctx context.Context, systemID string) (*model.Snapshot, error) {
	keys, err := c.client.Keys(ctx, "*").Result()
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}

	snap := &model.Snapshot{}
	links := make(map[int][]model.Link)
	foundNode := false

	for _, key := range keys {
		parts := strings.Split(key, "|")
		if len(parts) < 2 {
			continue
		}
		table := parts[0]
		if table == TableNextID {
			continue
		}

		vals, err := c.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}

		if table == TableNode {
			if parts[1] == systemID {
				snap.Node = model.Node{
					SystemID:     systemID,
					Hostname:     vals[FieldHostname],
					IsController: vals[FieldIsController] == "true",
				}
				foundNode = true
			}
			continue
		}

		id, err := strconv.Atoi(parts[1])
		if err != nil {
			util.WithField("key", key).Debug("Skipping key with non-numeric id")
			continue
		}

		switch table {
		case TableInterface:
			if vals[FieldNode] != systemID {
				continue
			}
			iface, err := DecodeInterface(id, vals)
			if err != nil {
				return nil, err
			}
			snap.Interfaces = append(snap.Interfaces, iface)
		case TableLink:
			if len(parts) != 3 {
				continue
			}
			linkID, err := strconv.Atoi(parts[2])
			if err != nil {
				continue
			}
			link, err := DecodeLink(linkID, vals)
			if err != nil {
				return nil, fmt.Errorf("interface %d: %w", id, err)
			}
			links[id] = append(links[id], link)
		case TableVLAN:
			snap.VLANs = append(snap.VLANs, decodeVLAN(id, vals))
		case TableFabric:
			snap.Fabrics = append(snap.Fabrics, decodeFabric(id, vals))
		case TableSubnet:
			snap.Subnets = append(snap.Subnets, decodeSubnet(id, vals))
		}
	}

	if !foundNode {
		return nil, fmt.Errorf("node %s: %w", systemID, util.ErrNotFound)
	}

	for n := range snap.Interfaces {
		iface := &snap.Interfaces[n]
		iface.Links = links[iface.ID]
		sortLinks(iface.Links)
	}
	sortSnapshot(snap)
	snap.FillChildren()
	return snap, nil
}

// Nodes lists the system ids stored in Redis.
func (c *RedisDB) Nodes(ctx context.Context) ([]string, error) {
	keys, err := c.client.Keys(ctx, TableNode+"|*").Result()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, TableNode+"|"))
	}
	return ids, nil
}

// WriteSnapshot stores snap, replacing any interfaces of the same ids. It
// also raises the id counters past the highest stored ids.
func (c *RedisDB) WriteSnapshot(ctx context.Context, snap *model.Snapshot) error {
	node := snap.Node.SystemID
	maxIface, maxLink := 0, 0

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, Key(TableNode, node), map[string]interface{}{
			FieldHostname:     snap.Node.Hostname,
			FieldIsController: strconv.FormatBool(snap.Node.IsController),
		})
		for n := range snap.Interfaces {
			iface := &snap.Interfaces[n]
			WriteInterface(ctx, pipe, node, iface)
			maxIface = max(maxIface, iface.ID)
			for _, l := range iface.Links {
				maxLink = max(maxLink, l.ID)
			}
		}
		for n := range snap.VLANs {
			v := &snap.VLANs[n]
			pipe.HSet(ctx, Key(TableVLAN, v.ID), toArgs(encodeVLAN(v)))
		}
		for n := range snap.Fabrics {
			f := &snap.Fabrics[n]
			pipe.HSet(ctx, Key(TableFabric, f.ID), toArgs(encodeFabric(f)))
		}
		for n := range snap.Subnets {
			s := &snap.Subnets[n]
			pipe.HSet(ctx, Key(TableSubnet, s.ID), toArgs(encodeSubnet(s)))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing snapshot for %s: %w", node, err)
	}
	return c.RaiseCounters(ctx, maxIface, maxLink)
}

// RaiseCounters makes sure the next allocated ids are above the given
// ones.
func (c *RedisDB) RaiseCounters(ctx context.Context, iface, link int) error {
	for key, floor := range map[string]int{
		Key(TableNextID, "interface"): iface,
		Key(TableNextID, "link"):      link,
	} {
		cur, err := c.client.Get(ctx, key).Int()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("reading %s: %w", key, err)
		}
		if cur < floor {
			if err := c.client.Set(ctx, key, floor, 0).Err(); err != nil {
				return fmt.Errorf("writing %s: %w", key, err)
			}
		}
	}
	return nil
}

// Counters returns the last allocated interface and link ids.
func (c *RedisDB) Counters(ctx context.Context) (iface, link int, err error) {
	iface, err = c.client.Get(ctx, Key(TableNextID, "interface")).Int()
	if err != nil && err != redis.Nil {
		return 0, 0, err
	}
	link, err = c.client.Get(ctx, Key(TableNextID, "link")).Int()
	if err != nil && err != redis.Nil {
		return 0, 0, err
	}
	return iface, link, nil
}

// WriteInterface queues the interface hash and its link hashes on pipe.
// Any stored hash is replaced, not merged.
func WriteInterface(ctx context.Context, pipe redis.Pipeliner, node string, iface *model.Interface) {
	key := Key(TableInterface, iface.ID)
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, toArgs(EncodeInterface(node, iface)))
	for n := range iface.Links {
		l := &iface.Links[n]
		lkey := Key(TableLink, iface.ID, l.ID)
		pipe.Del(ctx, lkey)
		pipe.HSet(ctx, lkey, toArgs(EncodeLink(l)))
	}
}

func toArgs(fields map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
