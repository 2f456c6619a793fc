// Package catalog drives incremental loading of the movie catalog and single movie records.
//
// # Controller
//
// [Controller] accumulates catalog pages for the committed [models.FilterState]. Its lifecycle
// is an explicit [State]:
//
//	Idle ──Begin──▶ Loading ──Complete(ok, full page)──▶ Idle
//	                   │──Complete(ok, short page)──▶ Exhausted
//	                   └──Complete(error)──▶ Errored ──Begin──▶ Loading
//
// Begin refuses to start while a page is Loading or after the catalog is Exhausted, so at most
// one page fetch is outstanding per filter epoch. ApplyFilters starts a new epoch; a response
// that completes for an older epoch is discarded without touching the accumulated list.
//
// Begin and Complete are split so that a UI event loop can run the fetch elsewhere and hand the
// result back. [Controller.LoadNextPage] runs the whole cycle for synchronous callers.
//
// # Detail loader
//
// [DetailLoader] fetches one movie record and wraps failures in [shared.DetailLoadError].
package catalog
