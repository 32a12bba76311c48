// Package cleanup finds orphaned AWS networking resources and deletes them in
// the order the provider requires.
//
// Resolution is read-only. It walks every available VPC, its security groups
// and its network interfaces to build a [Graph], and treats every group not
// reached by that walk as an orphan. Groups created by a managed service that
// encodes its parent id in the description (notebook domains do this) can be
// pulled in with a description filter and kept alive with an allow-list of
// parent ids.
//
// Deletion is best-effort per resource. Every requested id yields one
// [Outcome]. Resources that are already gone are logged and reported as
// [StatusAlreadyGone]; resources still in use are reported with [ErrInUse] and
// never retried. Waits on eventually-consistent state go through retry.Poll
// and fail with retry.ErrTimeout instead of spinning forever.
package cleanup
