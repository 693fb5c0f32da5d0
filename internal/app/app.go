// Package app generates subscription data into the blob store and lists it back.
package app

import (
	"context"
	"errors"

	"github.com/bft-labs/subvault/internal/catalog"
	"github.com/bft-labs/subvault/internal/namespace"
	"github.com/bft-labs/subvault/pkg/blobstore"
	"github.com/bft-labs/subvault/pkg/log"
	"github.com/bft-labs/subvault/pkg/runner"
)

// App generates and lists subscription data.
type App struct {
	resolver namespace.Resolver
	store    *blobstore.Store
	runner   *runner.Runner
	logger   log.Logger
}

// New creates an App with the given dependencies.
func New(resolver namespace.Resolver, store *blobstore.Store, r *runner.Runner, logger log.Logger) *App {
	return &App{
		resolver: resolver,
		store:    store,
		runner:   r,
		logger:   log.OrNoop(logger),
	}
}

// GenReport summarises what GenerateAll stored for one subscription.
type GenReport struct {
	Sub        uint8
	Categories int
	Entries    int
	Examples   int

	// Replaced is true when a previous catalog was overwritten.
	Replaced bool
}

// GenerateAll generates a catalog and its details cache of the given size
// for every subscription and saves both records in the subscription's
// namespace. The catalog is saved before the details cache.
//
// Reports are returned in subscription order, for the subscriptions that
// succeeded. A failure is a *runner.MultiError.
func (a *App) GenerateAll(ctx context.Context, subs []catalog.Subscription, size int) ([]GenReport, error) {
	return runner.Run(ctx, a.runner, subs, func(ctx context.Context, sub catalog.Subscription) (GenReport, error) {
		return a.generate(ctx, sub, size)
	})
}

func (a *App) generate(ctx context.Context, sub catalog.Subscription, size int) (GenReport, error) {
	logger := a.logger.With(log.Int("sub", int(sub.Idx)))

	logger.Info("generating catalog", log.Int("size", size))
	c, err := catalog.GenerateCatalog(size)
	if err != nil {
		return GenReport{}, err
	}
	out, err := a.save(ctx, sub, c)
	if err != nil {
		return GenReport{}, err
	}

	logger.Info("generating details cache")
	cache := c.GenerateDetails()
	if _, err := a.save(ctx, sub, cache); err != nil {
		return GenReport{}, err
	}

	report := GenReport{
		Sub:        sub.Idx,
		Categories: len(c.Index.Categories),
		Entries:    len(c.Index.Entries),
		Replaced:   out.BackedUp,
	}
	for _, item := range cache.Items {
		if item.Details.Examples != nil {
			report.Examples += len(item.Details.Examples.All())
		}
	}
	logger.Info("saved subscription data",
		log.Int("categories", report.Categories),
		log.Int("entries", report.Entries),
		log.Int("examples", report.Examples),
	)
	return report, nil
}

func (a *App) save(ctx context.Context, sub catalog.Subscription, rec blobstore.Record) (blobstore.Outcome, error) {
	path, err := a.resolver.Path(sub.Idx, rec)
	if err != nil {
		return blobstore.Outcome{}, err
	}
	out, err := a.store.Save(ctx, rec, path)
	if errors.Is(err, blobstore.ErrRolledBack) {
		a.logger.Warn("previous version kept after failed write",
			log.Int("sub", int(sub.Idx)), log.String("record", rec.Describe()), log.Err(out.WriteErr))
	}
	return out, err
}

// subListing is the outcome of listing one subscription. A catalog that
// could not be loaded is carried in err rather than failing the run.
type subListing struct {
	sub     uint8
	listing *catalog.Listing
	err     error
}

// ListAll loads the records of every subscription and returns the
// formatted listing of all of them, in subscription order.
//
// A subscription whose catalog cannot be loaded is logged and left out.
// A details cache that exists but cannot be loaded fails that
// subscription's task, and with it the whole call.
func (a *App) ListAll(ctx context.Context, subs []catalog.Subscription) (string, error) {
	results, err := runner.Run(ctx, a.runner, subs, a.list)
	if err != nil {
		return "", err
	}

	listings := make([]*catalog.Listing, 0, len(results))
	for _, res := range results {
		if res.err != nil {
			a.logger.Error("failed to get catalog for subscription", log.Int("sub", int(res.sub)), log.Err(res.err))
			continue
		}
		listings = append(listings, res.listing)
	}
	return catalog.FormatListing(listings), nil
}

func (a *App) list(ctx context.Context, sub catalog.Subscription) (subListing, error) {
	res := subListing{sub: sub.Idx}

	catalogPath, err := a.resolver.Path(sub.Idx, &catalog.Catalog{})
	if err != nil {
		return res, err
	}
	c, err := blobstore.LoadAs[catalog.Catalog](ctx, a.store, catalogPath)
	if err != nil {
		res.err = err
		return res, nil
	}

	cachePath, err := a.resolver.Path(sub.Idx, &catalog.DetailsCache{})
	if err != nil {
		return res, err
	}
	cache, _, err := blobstore.LoadOrNew[catalog.DetailsCache](ctx, a.store, cachePath, catalog.NewDetailsCache)
	if err != nil {
		return res, err
	}

	res.listing = catalog.BuildListing(c, cache, sub, a.logger)
	return res, nil
}
