// Package services implements the HTTP client for the Kinopoisk catalog API.
//
// # Catalog client
//
// [CatalogService] implements [CatalogClient] on top of two endpoints:
//   - GET {base}/v1.4/movie : paginated catalog, filtered by query parameters
//   - GET {base}/v1.4/movie/{id} : a single movie with similar titles
//
// Every request carries the static API key in the X-API-KEY header.
//
// # Retry policy
//
// Each call is attempted up to max_attempts times with a fixed pause between attempts. There is
// no backoff and no jitter, and every failure is treated the same way: transport errors, non-2xx
// statuses and undecodable bodies are all retried. When the last attempt fails the caller gets a
// [shared.NetworkError] wrapping that attempt's error.
//
// Retries are driven by [retry.DoWithData]. Optional client-side pacing through a [rate.Limiter]
// is applied before every attempt.
//
// # Raw requests
//
// [CatalogService.Raw] runs the same retrying GET and returns status, headers and body
// unchanged. The CLI uses it for `kpx api get`.
package services
