// Package checkpoint saves and resumes the progress of active collection runs.
//
// A checkpoint holds the last cursor the server returned together with the
// records merged so far, so a resumed run continues from the same position
// and does not count restored followers as new.
//
// Two stores are provided:
//   - FileStore writes one JSON file per target under the platform data
//     directory (~/.local/share/igfollowers/checkpoints on Linux). Writes go
//     through a temp file and a rename.
//   - RedisStore keeps checkpoints under igfollowers:checkpoint:<user_id>
//     with an expiry.
package checkpoint
