// Package canvas implements the freehand annotation overlay drawn on top of a
// rendered document page.
//
// Strokes are recorded in page-intrinsic pixel space: every input position is
// rescaled from the displayed bounding box to the page's native raster size,
// so the same gesture lands on the same page pixels at any zoom level. The
// overlay raster always matches the page raster's intrinsic size and is
// serialized to PNG by Snapshot for capture into the cart.
//
// The drawing lifecycle is an explicit two-state machine (Idle, Drawing).
// Bind resets the overlay for a new page; Layout re-establishes display
// geometry after a zoom change and commits any in-progress stroke.
package canvas
