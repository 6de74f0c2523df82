// Package connectors provides sources of uploads for ingestion. Each
// connector knows how to turn documents from one place into domain.Upload
// values; the filesystem connector reads and watches a local directory.
package connectors
