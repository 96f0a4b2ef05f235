// Package domain contains the core model for pytmc: TwinCAT elements read
// from .tmc files, the pytmc pragma grammar, EPICS records and the CI
// pipeline descriptor.
//
// The domain does not depend on XML or YAML parsing, the filesystem or
// process execution. Infra/adapters map into/from these types.
package domain
