package dirtree

// This file provides test-only I/O hooks for the internal backend contract.
//
// How it is called:
//   - Walk -> visit -> readBatch(..., onEntry)
//   - onEntry passes each listing hint through the hook before classifying
//     the entry. This lets tests reach the stat fallback (DT_UNKNOWN) on file
//     systems that always fill in d_type.
//
// Scope and safety:
//   - Hooks are per walk (set through an unexported option), so hooked tests
//     may run in parallel with everything else.
//   - Production walks carry a nil *dirHooks and pay one nil check per entry.

type dirHooks struct {
	// hint replaces the listing's type hint for name.
	hint func(name []byte, hint typeHint) typeHint
}

// withDirHooks installs hooks for one walk. Not exported; see export_test.go.
func withDirHooks(h *dirHooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

// listingHint applies the hint hook, if any.
func (h *dirHooks) listingHint(name []byte, hint typeHint) typeHint {
	if h == nil || h.hint == nil {
		return hint
	}

	return h.hint(name, hint)
}
