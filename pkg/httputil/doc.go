// Package httputil provides HTTP helpers shared by the registry clients.
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff, but only for
// errors the caller explicitly marked transient with [Retryable]:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    ...
//	})
//
// Everything else (404s, decode errors) is returned on the first attempt.
package httputil
