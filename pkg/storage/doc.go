// Package storage persists finished collection runs.
//
// A Sink receives the ordered follower records of a run together with its
// summary. Two sinks are provided:
//   - FileSink writes <user_id>_followers.json (or .jsonl) and
//     <user_id>_summary.json into an output directory. Files are written to a
//     temporary name first and renamed into place.
//   - PostgresSink batch-inserts followers into <schema>.followers, skipping
//     rows already stored for the same (user_id, pk), and records the run in
//     <schema>.collection_runs.
//
// MultiSink writes to several sinks and reports every failure.
//
// Usage:
//
//	sink, err := storage.NewFileSink("output", storage.FormatJSON)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := sink.Write(ctx, result); err != nil {
//	    log.Printf("Failed to save followers: %v", err)
//	}
package storage
