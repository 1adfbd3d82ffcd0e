// Package storage provides the object storage abstraction used for the
// optional results sink and for object-store ingress.
//
// # Backends
//
//   - storage/s3: Amazon S3 and S3-compatible storage
//   - storage/local: local filesystem storage for development and tests
//
// # Configuration
//
//	storage:
//	  provider: "s3"
//	  bucket: "transcripts"
//	  region: "us-east-1"
//	  access_key: "..."
//	  secret_key: "..."
//
// Results are written under <key_prefix>/<client id>/<suffix>.{json,md}.
package storage
