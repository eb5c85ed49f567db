// Package github implements the remote repository source over the GitHub
// REST API.
//
// It exposes the Source capability consumed by the archive package: search,
// repository metadata, directory listing, and raw file content. The binary vs.
// text decision for file content is made exactly once here and carried through
// as a tagged value; downstream code never re-infers it.
package github
