// Package sheets registers every workbook sheet with the core registry.
// Import this package to ensure all sheets are registered.
package sheets

// Each sheet file uses init() to register its sheets. Order values leave
// gaps so a sheet can be slotted in without renumbering.
