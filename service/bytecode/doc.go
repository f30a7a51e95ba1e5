// Package bytecode loads compiled-module bytes from location-addressed
// storage for registration convenience; the core itself stays byte-only.
package bytecode
