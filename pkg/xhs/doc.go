// Package xhs is a thin client for the toolbox backend that fronts the
// social platform.
//
// Each Client method maps to exactly one backend endpoint. Most endpoints
// answer with an envelope:
//
//	{"code": 0, "message": "ok", "data": {...}}
//
// A successful envelope without data is "no results", not an error. A
// failing code becomes an *errors.Error of type ErrorTypeBackend, HTTP
// failures are mapped by status and transport failures become
// ErrorTypeNetwork. Nothing is retried.
//
// Paginated endpoints return an opaque cursor and a has_more flag. Pass the
// cursor back exactly as received to fetch the next page:
//
//	page, err := client.HomeFeed(ctx, "homefeed_recommend", "", 0)
//	if err == nil && page.HasMore {
//	    next, err = client.HomeFeed(ctx, "homefeed_recommend", page.Cursor, 0)
//	}
package xhs
