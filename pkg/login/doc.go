// Package login drives the QR code login against the backend.
//
// A Flow moves through loading, waiting, scanned and finally confirmed or
// expired. Polling happens on a single task owned by the current attempt:
//
//	flow := login.NewFlow(client, login.Options{OnStatus: show})
//	if err := flow.Start(ctx); err != nil {
//	    // expired, ask the user to refresh
//	}
//	user, err := flow.Wait(ctx)
//
// Poll failures never end an attempt. Transport errors and unrecognised
// status codes are logged and the attempt stays waiting.
package login
