// Package model defines stable boundary types for the CLI and API layers.
//
// Canonical identity (RCF bytes, fingerprints and CIDs) is unaffected by any
// projection. These structs are the only types intended for direct JSON
// serialization by consumers. Fingerprints travel as decimal strings because
// JSON numbers cannot carry 256 bits.
package model
