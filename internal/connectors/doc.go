// Package connectors provides document sources that feed the ingestion
// pipeline from outside the HTTP API. The filesystem connector keeps a
// directory in sync with the document store.
package connectors
