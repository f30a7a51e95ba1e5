// Package registry owns compiled modules and their precompiled
// instantiation templates, keyed by a monotonic module id.
package registry
