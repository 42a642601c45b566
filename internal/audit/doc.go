// Package audit implements the rule-based codebase audit engine used by the
// atlas-audit CLI.
//
// Groups of declarative content checks and tree scans record Results into a
// Session; Aggregate folds them into a scored Summary that TextReporter and
// StructuredReporter render. Service drives one run or a watch loop, and
// CommandBuilder wires it into the audit Cobra command.
package audit
