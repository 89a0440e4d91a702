// Package engine implements the vmesh data and algorithm runtime.
//
// Independently written algorithms exchange typed data through it without
// knowing each other's representations.
//
// ARCHITECTURE:
//
// Registries:
// A Context owns every registry. Logical types ("mesh", "double") have one
// or more binary formats, each with a constructor and destructor. Formats
// carry the directed conversion edges that leave them. Algorithm templates
// are named factories. Modules (built in or Go plugins) populate all three
// through the Registrar interface.
//
// Data:
// A Data handle owns one instance of one binary format and caches the
// representations it has been converted to, so each target is converted at
// most once per handle.
//
// Conversion is single hop. Given edges A->B and B->C only, A cannot be
// converted to C. Consumers that accept several representations use
// Dispatch: try exact formats in priority order, then one generic
// conversion.
//
// Algorithms:
// An AlgorithmInstance has declared input and output slots. Inputs are set
// explicitly, linked to another instance's output, or pulled from a
// default source; sources run lazily, at most once per wiring.
//
// CONCURRENCY:
//
// A Context is single threaded. Separate Contexts are independent and may
// be used from separate goroutines.
package engine
