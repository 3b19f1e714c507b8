package mutation

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/source"
	"github.com/newtron-network/netedit/pkg/util"
)

// maxRetries bounds optimistic-lock retries when another writer touches
// the node between read and write.
const maxRetries = 5

// RedisClient applies change sets to the Redis layout read by
// source.RedisDB. The whole set is written in one MULTI/EXEC, guarded by a
// WATCH on the counters and the node's keys.
type RedisClient struct {
	db *source.RedisDB
}

// NewRedisClient creates a client writing through db.
func NewRedisClient(db *source.RedisDB) *RedisClient {
	return &RedisClient{db: db}
}

// Apply implements Client.
func (c *RedisClient) Apply(ctx context.Context, cs *ChangeSet) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := c.applyOnce(ctx, cs)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		util.WithNode(cs.Node).Debugf("Concurrent write during %s, retrying", cs.Operation)
	}
	return fmt.Errorf("%s on %s: too many concurrent writers", cs.Operation, cs.Node)
}

func (c *RedisClient) applyOnce(ctx context.Context, cs *ChangeSet) error {
	before, err := c.db.Snapshot(ctx, cs.Node)
	if err != nil {
		return err
	}
	watched := []string{
		source.Key(source.TableNextID, "interface"),
		source.Key(source.TableNextID, "link"),
	}
	for _, iface := range before.Interfaces {
		watched = append(watched, source.Key(source.TableInterface, iface.ID))
	}

	return c.db.Client().Watch(ctx, func(tx *redis.Tx) error {
		// Re-read under WATCH; anything that moved since is a conflict.
		cur, err := c.db.Snapshot(ctx, cs.Node)
		if err != nil {
			return err
		}
		if !reflect.DeepEqual(cur, before) {
			return redis.TxFailedErr
		}

		ifaceID, linkID, err := c.db.Counters(ctx)
		if err != nil {
			return err
		}
		ids := IDsFrom(before)
		ids.Interface = max(ids.Interface, ifaceID)
		ids.Link = max(ids.Link, linkID)

		after := before.Clone()
		if err := ApplyTo(after, cs, ids); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			writeDiff(ctx, pipe, cs.Node, before, after)
			pipe.Set(ctx, watched[0], ids.Interface, 0)
			pipe.Set(ctx, watched[1], ids.Link, 0)
			return nil
		})
		return err
	}, watched...)
}

// writeDiff queues the writes that turn before into after: changed
// interfaces are rewritten whole, removed interfaces and links deleted.
func writeDiff(ctx context.Context, pipe redis.Pipeliner, node string, before, after *model.Snapshot) {
	old := make(map[int]*model.Interface, len(before.Interfaces))
	for n := range before.Interfaces {
		old[before.Interfaces[n].ID] = &before.Interfaces[n]
	}

	for n := range after.Interfaces {
		iface := &after.Interfaces[n]
		prev, ok := old[iface.ID]
		delete(old, iface.ID)
		if ok && interfaceEqual(prev, iface) {
			continue
		}
		if ok {
			deleteLinks(ctx, pipe, prev, iface)
		}
		source.WriteInterface(ctx, pipe, node, iface)
	}
	for _, gone := range old {
		pipe.Del(ctx, source.Key(source.TableInterface, gone.ID))
		deleteLinks(ctx, pipe, gone, nil)
	}
}

// deleteLinks removes the links of prev that cur no longer has.
func deleteLinks(ctx context.Context, pipe redis.Pipeliner, prev, cur *model.Interface) {
	keep := map[int]bool{}
	if cur != nil {
		for _, l := range cur.Links {
			keep[l.ID] = true
		}
	}
	for _, l := range prev.Links {
		if !keep[l.ID] {
			pipe.Del(ctx, source.Key(source.TableLink, prev.ID, l.ID))
		}
	}
}

func interfaceEqual(a, b *model.Interface) bool {
	ea, eb := source.EncodeInterface("", a), source.EncodeInterface("", b)
	if len(ea) != len(eb) || len(a.Links) != len(b.Links) {
		return false
	}
	for k, v := range ea {
		if eb[k] != v {
			return false
		}
	}
	for n := range a.Links {
		la, lb := a.Links[n], b.Links[n]
		if la.ID != lb.ID || la.Mode != lb.Mode || la.IPAddress != lb.IPAddress || !model.IntPtrEqual(la.SubnetID, lb.SubnetID) {
			return false
		}
	}
	return true
}
