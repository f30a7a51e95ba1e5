// Package shardmap implements the key-partitioned concurrent maps backing
// the module registry and the lifecycle tracker. A single global mutex
// would serialise unrelated processes; per-shard locking keeps independent
// ids contention free.
package shardmap
