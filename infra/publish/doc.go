// Package publish provides artifact.Publisher implementations: a local
// directory, SQLite, PostgreSQL, Redis, MQTT and S3. Each registers itself
// in the artifact registry under its type name.
package publish
