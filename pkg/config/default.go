// Package config holds global, compile-time database configuration.
package config

import "github.com/ncw/directio"

// PageSize is the size, in bytes, of every on-disk and in-memory page.
// Pinned to directio.BlockSize so pages stay aligned for O_DIRECT access.
const PageSize int64 = directio.BlockSize

// Name of the database.
const DBName = "dinokv"

// Prompt printed by REPL.
const Prompt = DBName + "> "

// PoolSize is the default number of frames in the buffer pool.
const PoolSize = 32

// LRUKDistance is the default K used by the LRU-K replacer: the number of
// most recent accesses tracked per frame before its backward K-distance
// becomes finite.
const LRUKDistance = 2

// Name of the write-ahead log file accepted (but not interpreted) by the core.
const LogFileName = "db.log"

// HeaderPageID is the reserved page id of the catalog's header page.
const HeaderPageID int64 = 0

// Return prompt if requested, else "".
func GetPrompt(flag bool) string {
	if flag {
		return Prompt
	}
	return ""
}
