// Package upload performs two-phase resumable video uploads: an init
// request that opens a session, then a streamed transfer of the media
// body with byte-level progress. Each call is a fresh session; partial
// transfers are not resumed.
package upload
