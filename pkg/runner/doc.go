// Package runner drives many independent operations with bounded concurrency.
//
// Input items are split into consecutive chunks of Config.ChunkSize. All
// tasks of a chunk start together; the runner then awaits them in input order,
// retries failed items one at a time (Config.Retries extra attempts each) and
// only then moves to the next chunk. A chunk with a final failure stops the
// run unless Config.AllowPartial is set.
//
// # Usage
//
//	r, err := runner.New(runner.Config{ChunkSize: 8, Retries: 2}, runner.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	results, err := runner.Run(ctx, r, subs, func(ctx context.Context, s Sub) (Report, error) {
//	    return process(ctx, s)
//	})
//	var multi *runner.MultiError
//	if errors.As(err, &multi) {
//	    // results holds every success; multi.Errors every failure
//	}
//
// There is no cancellation of in-flight tasks and no timeout: a task that
// never returns blocks its chunk.
//
// Executor is a separate bounded pool for CPU-bound work (encoding,
// compression) so that it does not monopolise the goroutines doing I/O.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package runner
