package main

import "github.com/cryptoedge/arbmon/internal/domain"

// exitCodeFor maps a command's terminal error to the documented exit code
// contract: 0 success (never reached here), 1 configuration error, 2
// transient backend failure. Anything else defaults to a configuration
// error, since an un-typed failure at the command boundary usually traces
// back to a bad flag or missing file rather than a flaky backend.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	switch {
	case domain.Is(err, domain.ErrConfigInvalid):
		return exitConfigError
	case domain.Is(err, domain.ErrStoreUnavailable),
		domain.Is(err, domain.ErrTransientNetwork),
		domain.Is(err, domain.ErrRateLimited):
		return exitTransientFail
	default:
		return exitConfigError
	}
}
