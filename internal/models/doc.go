// Package models defines the catalog data shared by the client, the controller, the favorites
// store and the renderers.
//
//   - [MovieSummary] : list entry and favorites entry (id, name, year, rating.kp, poster)
//   - [MovieDetail] : full record with countries, genres and similar titles
//   - [Page] : one response of the paginated catalog endpoint
//   - [FilterState] : committed filters with their navigation query form
//
// JSON field names follow the catalog API (poster.previewUrl, rating.kp) so favorites persisted
// by older builds stay readable.
package models
