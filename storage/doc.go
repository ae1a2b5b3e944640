// Package storage provides object storage backends for file resources.
//
// Backends register a factory under a provider name (local, s3, memory);
// New builds one from Config. A Stores set holds the named stores a
// pipeline definition refers to, e.g. "landing" or "archive".
package storage
