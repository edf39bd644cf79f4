// Package conformance holds the pieces shared by the GPU conformance
// programs in cmd/: the result enum and its merge rule, the PIGLIT line
// reporter, the per-program declaration block and the package logger.
//
// # Programs
//
// Every program is a standalone binary that configures a device, builds its
// resources and shaders, dispatches, verifies the readback against a closed
// form expectation and reports:
//
//   - robust-read-bounds: out-of-bounds reads through uniform buffers,
//     storage buffers, textures, storage images and atomics return zero
//   - robust-resources: indexing arrays of resources past their end returns
//     zero (alpha 1 for texture reads)
//   - robust-ssbo-write: out-of-bounds storage writes stay inside the bound
//     range
//   - sample-mask: a coverage mask written by a fragment shader lands on
//     exactly the selected samples
//
// conformance-run executes a profile of these programs and summarizes their
// results.
//
// # Results
//
// Programs print one line per sub-case and one final line:
//
//	PIGLIT: {"subtest":{"ubo":"pass"}}
//	PIGLIT: {"result":"pass"}
//
// A setup failure (resource creation, shader compilation) fails the whole
// program. A verification mismatch fails its sub-case only. A capability the
// device lacks produces a skip.
//
// # Logging
//
// Nothing is logged by default. Use SetLogger, or the --log-level flag of the
// commands, to see device selection and dispatch details on stderr.
package conformance
