// Package compose turns annotated page rasters into the single PDF artifact
// that is emailed and persisted.
//
// Each page overlay is flattened onto its rendered page image (or onto white
// when no page image is available) and the results are imported into a new
// document with pdfcpu, one PDF page per annotated page in ascending page
// order.
package compose
