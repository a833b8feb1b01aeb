// Package preflight provides readiness checks for the filesystem paths
// clientbook depends on.
//
// These checks run in two contexts:
//   - "clientbook serve" calls RunAll before opening the gateway and refuses to
//     start when a check fails.
//   - "clientbook health" prints every result next to the database report.
package preflight
