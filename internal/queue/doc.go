// Package queue persists transcription jobs in SQLite and defines the job
// model shared by the pipeline.
//
// The Store manages database connections, schema initialization, stats
// queries, crash recovery, and status transitions that mirror the job status
// enum. A Job's ID is assigned by the table and stays stable for the table's
// lifetime, so the scheduler, the progress feed and the CLI all refer to jobs
// by ID rather than by list position.
//
// The database is treated as working state for queued and recent jobs rather
// than a long-term archive. Schema changes bump the version in schema.go;
// users clear the database to adopt the new schema.
package queue
