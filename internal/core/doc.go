// Package core provides the business logic for exporting and importing
// metadata labels through a multi-language workbook.
//
// This package holds all domain logic independent of any transport layer.
// It is used by the web handlers, the CLI and tests without modification.
//
// # Sheet Registry
//
// Sheets are registered at init time using [Register] (see package sheets).
// Each [SheetDefinition] knows its identity columns, how to project a
// [metadata.Tree] into rows and how to turn an edited row back into a
// [Target]:
//
//	core.Register(core.SheetDefinition{
//	    Info: core.SheetInfo{
//	        Key: "entities", Group: core.GroupEntities, Name: "Entities",
//	        Columns: []string{"Entity Id", "Entity Logical Name", core.TypeColumn},
//	        Qualifiers: []string{metadata.DisplayName, metadata.DisplayCollectionName, metadata.Description},
//	    },
//	    Project: projectEntities,
//	    Target:  entityTarget,
//	})
//
// # Export
//
// [Service.Export] builds the selection (see [metadata.Builder]), lays each
// registered sheet out with one column per language and returns the xlsx
// bytes. Nodes that cannot be fetched are left out and counted.
//
// # Import
//
// An import runs in four stages:
//
//  1. [Parser] reads every known sheet, detects the language columns and
//     merges rows into one [UpdateUnit] per [Target].
//  2. [Reconciler] optionally drops translations equal to the live value.
//  3. [Dispatcher] applies the units sheet by sheet. A failed unit does not
//     stop the run. Layout captions are patched into cached documents.
//  4. Changed documents are written once each and the repository is
//     published once.
//
// [Service.StartImport] runs the same stages in the background; progress is
// broadcast to subscribers via [Service.SubscribeProgress].
//
// # Error Handling
//
// Failures are classified by package failure. [MapError] turns any error
// into a user-facing message with a support code:
//
//   - CONN, FETCH, REF, UPD, LOC: repository errors
//   - PARSE, SHEET, FILE: workbook errors
//   - RUN: run lifecycle (in progress, cancelled, timed out)
//
// # Concurrency
//
// [RunLimiter] allows one run per service at a time by default, held from
// workbook to publish. Language sweeps are additionally serialized across
// the whole process because they switch the operator's user language.
package core
