// Package pagination provides sequential page fetching for paginated Riot
// League endpoints.
//
// The league entries endpoint does not report a page count, so pages are
// requested one after another until the API returns an empty page or a
// configured number of entries has been collected.
//
// Example usage:
//
//	fetcher, err := pagination.NewFetcher(riot.PageFunc(bracket), 500)
//	if err != nil {
//		return err
//	}
//	for {
//		entries, err := fetcher.Next(ctx)
//		if errors.Is(err, pagination.ErrDone) {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		cache.Add(ctx, entries)
//	}
//	log.Info().Stringer("reason", fetcher.Reason()).Msg("Bracket done")
//
// The fetcher never waits on its own. Rate limiting is the caller's job: consult
// a ratelimit.Gate before every Next call.
package pagination
