// Package httputil provides the HTTP plumbing used by the downloader.
//
// # Overview
//
//   - [NewClient]: an *http.Client that presents a browser User-Agent,
//     since several library mirrors reject Go's default one
//   - [Retry]: bounded retry with a fixed delay
//
// # Retry
//
// [Retry] only repeats errors wrapped in [RetryableError]. Anything else is
// returned at once:
//
//	err := httputil.Retry(ctx, httputil.Policy{Attempts: 3, Delay: 2 * time.Second},
//	    func(attempt int) error {
//	        if err := fetch(); err != nil {
//	            return &httputil.RetryableError{Err: err}
//	        }
//	        return nil
//	    })
//
// Every wait between attempts is Policy.Delay. Cancelling ctx aborts the
// wait.
package httputil
