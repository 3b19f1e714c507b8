package audit

import (
	"context"
	"time"

	"github.com/newtron-network/netedit/pkg/mutation"
	"github.com/newtron-network/netedit/pkg/util"
)

// Client wraps a mutation client and logs an Event for every change set
// it is given, applied or not.
type Client struct {
	inner  mutation.Client
	logger Logger
	user   string
	dryRun bool
}

// WrapClient returns inner with auditing. A nil logger uses the default
// logger set with SetDefaultLogger.
func WrapClient(inner mutation.Client, logger Logger, user string) *Client {
	_, dryRun := inner.(mutation.DryRun)
	return &Client{inner: inner, logger: logger, user: user, dryRun: dryRun}
}

// Apply implements mutation.Client. A failure to write the audit record
// is logged and does not fail the apply.
func (c *Client) Apply(ctx context.Context, cs *mutation.ChangeSet) error {
	start := time.Now()
	err := c.inner.Apply(ctx, cs)

	user := c.user
	if u, ok := ctx.Value(userKey{}).(string); ok && u != "" {
		user = u
	}
	event := NewEvent(user, cs.Node, cs.Operation).
		WithChanges(cs.Changes).
		WithDuration(time.Since(start)).
		WithDryRun(c.dryRun)
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		event.WithClientIP(ip)
	}
	if err != nil {
		event.WithError(err)
	} else {
		event.WithSuccess()
	}

	var logErr error
	if c.logger != nil {
		logErr = c.logger.Log(event)
	} else {
		logErr = Log(event)
	}
	if logErr != nil {
		util.WithNode(cs.Node).Warnf("audit: failed to record %s: %v", cs.Operation, logErr)
	}
	return err
}

type (
	clientIPKey struct{}
	userKey     struct{}
)

// WithClientIP returns a context whose commits are audited with ip.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// WithUser returns a context whose commits are audited as user instead of
// the client's default user.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}
