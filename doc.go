// Package ember provides a lightweight scheduler that runs many
// short-lived sandboxed WebAssembly processes concurrently under a
// cooperative fuel budget, without dedicating a native thread per
// process.
//
// The engine is designed to be embedded in host applications. End-users
// typically interact with it via the high-level Service façade exposed by
// the root package:
//
//	svc := ember.New()
//	rt := svc.Runtime()
//	_ = rt.Start(ctx)
//	moduleID, _ := rt.Register(ctx, wasmBytes)
//	processID, _ := rt.Spawn(ctx, moduleID)
//	_ = rt.WaitUntilEnded(ctx, 1, 0)
//
// The pluggable service layers underneath are:
//
//   - registry  – compiled modules and instantiation templates
//   - scheduler – admission queue and fire-and-forget dispatch
//   - runner    – fuel-metered execution of one process
//   - lifecycle – start/end timing bookkeeping
//   - sandbox   – the execution engine contracts and adapters
//
// For more details see the README and individual sub-packages.
package ember
