package sandbox

// HostKey names one importable host function.
type HostKey struct {
	Namespace string
	Name      string
}

// HostTable maps import names to host-callable functions. The concrete
// function signatures an engine accepts are engine-specific; the core
// treats the table as opaque embedder-supplied configuration bound at
// link time.
type HostTable map[HostKey]interface{}

// Define registers fn under namespace/name and returns the table so
// definitions can be chained.
func (t HostTable) Define(namespace, name string, fn interface{}) HostTable {
	t[HostKey{Namespace: namespace, Name: name}] = fn
	return t
}

// Lookup returns the function registered under namespace/name.
func (t HostTable) Lookup(namespace, name string) (interface{}, bool) {
	fn, ok := t[HostKey{Namespace: namespace, Name: name}]
	return fn, ok
}
