// Package compression reduces the size of command output before it is
// replayed into a model's context.
//
// Output is classified by the command that produced it. A Registry holds the
// processors ordered by priority; the first processor whose CanHandle
// accepts the command wins. The generic processor has the lowest priority
// and accepts every command, so selection always succeeds.
//
// # Processors
//
//   - package_list (15): pip, npm, conda, gem and brew listings
//   - network (30): curl and wget transfer chatter
//   - terraform (33): terraform and OpenTofu plan/apply output
//   - search (35): grep, rg and ag results grouped by file
//   - generic (999): ANSI stripping, progress removal, line folding and
//     head/tail truncation
//
// # Pipeline
//
// Service.Compress never fails. Short inputs are returned untouched, a
// processor that errors or panics yields the original output, and a result
// that does not save at least Config.MinCompressionRatio of the bytes is
// discarded. Accepted results are handed to the configured Recorder.
//
//	svc, err := compression.NewBuiltinService(compression.DefaultConfig(),
//	    compression.WithRecorder(ledger))
//	if err != nil {
//	    return err
//	}
//	result := svc.Compress(ctx, "git log", output)
//	fmt.Print(result.Output)
package compression
