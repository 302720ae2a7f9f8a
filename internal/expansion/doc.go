// Package expansion applies axial thermal expansion to the fuel blocks of a
// reactor core once per time node and accumulates the growth of every fuel
// assembly.
//
// The engine consumes the core through small interfaces:
//
//   - [Core]: fuel assemblies, axial mesh presence and refresh
//   - [Assembly]: location label and ordered fuel blocks
//   - [Block]: beginning-of-life height, current height and its setter
//   - [Component]: temperatures and the thermal expansion factor
//
// # Caches
//
// [New] scans the core once and gives every assembly, block and component an
// integer handle. Previous block heights, previous component temperatures and
// assembly growth live in slices indexed by those handles. The scan is a
// snapshot: assemblies, blocks or components added to the core afterwards are
// never expanded.
//
// # Growth rule
//
// Each fuel component proposes previousHeight × factor, where the factor is
// taken between the component's last recorded temperature and its current
// one. The block takes the largest proposal and never shrinks below its
// previous height. The component temperature is recorded on every call, so a
// component held at a constant temperature stops growing after the first node.
//
// # Thread Safety
//
// Engine instances are NOT thread-safe. Run one engine per core.
package expansion
