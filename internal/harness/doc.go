// Package harness runs pipeline conformance scenarios.
//
// A scenario names a pipeline file, the outcome the run should reach and a
// list of assertions over the run journal and the step outputs. Every
// scenario runs in a fresh Context with the built-in modules loaded and an
// in-memory SQLite journal, so traces are isolated per scenario.
//
// # Scenario Format
//
//	name: rect_stats
//	description: "Rectangle mesh feeds the statistics step"
//	pipeline: ../pipelines/rect_stats.yaml
//	expect:
//	  status: succeeded
//	assertions:
//	  - type: trace_order
//	    steps: [mesher, stats]
//	  - type: trace_contains
//	    step: stats
//	    status: succeeded
//	    inputs: { mesh: "mesh[triangular_2d]" }
//	  - type: trace_count
//	    step: mesher
//	    count: 1
//	  - type: output
//	    step: stats
//	    output: vertex_count
//	    value: 10
//
// A failing run is described with expect.status "failed", optionally with
// the step expected to fail and the engine error code name.
//
// # Deterministic Testing
//
// Instance IDs come from testutil.SequenceIDGenerator and the session ID is
// fixed, so journal traces are identical across runs and can be compared
// against golden snapshots with RunWithGolden.
package harness
