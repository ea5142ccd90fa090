// Package history records import runs in the SQLite database.
//
// Every import job, successful or aborted, becomes one Run row holding its
// timing, the number of sources and the JSON import summary. The read API
// serves them under /imports.
//
//	repo := history.NewRepository(db)
//	run := history.NewRun(history.OriginAPI, time.Now())
//	...
//	err := repo.Save(ctx, run.Finish(result.Summary, len(result.Sources), nil))
package history
