// Package badgerlog provides a BadgerDB-backed commit log for edb, an
// alternative to the SQLite store for deployments that prefer an embedded
// LSM key-value store.
//
// Key layout:
//
//	commit:{seq:020d}  -> encoded commit (JSON, zstd above a size threshold)
//	rev:{revision}     -> seq (8 bytes, big endian)
//	meta:seq           -> last assigned seq (8 bytes, big endian)
//
// Zero-padded sequence numbers keep prefix iteration in append order.
package badgerlog
