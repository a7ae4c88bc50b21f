// Package ratelimit spaces out outgoing operations.
//
// Media downloads are started at least a fixed interval apart so the
// backend is not hit by a burst when a note has many images:
//
//	spacer := ratelimit.NewSpacer(500 * time.Millisecond)
//	for _, job := range jobs {
//	    if err := spacer.Wait(ctx); err != nil {
//	        return err
//	    }
//	    go download(job)
//	}
package ratelimit
