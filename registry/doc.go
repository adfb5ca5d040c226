// Package registry implements the authorization registry: the marshal table
// and the global freeze flag that gate every custodial operation.
//
// A Registry is an explicit object owned by a hub and handed by reference to
// each fund it charters, so one SetFreeze halts marshal operations system-wide.
package registry
