package query

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// NameResolver resolves a handle to a display name, or "" when unknown.
// contacts.Resolver satisfies it.
type NameResolver interface {
	Resolve(ctx context.Context, identifier string) string
}

// enrichConcurrency bounds the resolver fan-out. Resolution may hit an
// out-of-process directory, so runaway parallelism helps nobody.
const enrichConcurrency = 8

// EnrichWithNames resolves sender names for a batch of messages
// concurrently. Output order matches input order; a message whose sender
// cannot be resolved keeps an empty SenderName and never fails the batch.
func EnrichWithNames(ctx context.Context, r NameResolver, msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i := range out {
		if out[i].SenderID == "" {
			continue
		}
		g.Go(func() error {
			out[i].SenderName = r.Resolve(ctx, out[i].SenderID)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; resolution degrades per item
	return out
}
