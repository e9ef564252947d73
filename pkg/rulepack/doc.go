// Package rulepack decodes, validates and lints rule pack documents.
//
// A rule pack document has the shape
//
//	name: Public kiosk baseline
//	version: "2024.1"
//	rules:
//	  - id: button_min_size
//	    variables: [w, h]
//	    thresholds: {min_mm: 9.0}
//	    condition: w >= min_mm and h >= min_mm
//	    severity: medium
//	    remediation: Increase control size
//
// and may be written as YAML or JSON. Decode checks it against an embedded
// JSON Schema; Linter then compiles every condition in the sandbox and
// reports each failing rule, duplicate IDs and references to names that
// nothing binds.
package rulepack
