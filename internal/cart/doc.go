// Package cart holds the session-scoped page capture cart: page number to the
// most recent annotated raster saved for it.
//
// A Cart is created empty when an annotation session opens and is never
// persisted. Saving a page overwrites any previous capture for that page;
// Clear requires an explicit confirmation; Pages always reports page numbers
// in ascending order, which is the order every downstream request uses.
// A successful send settles only the captures it delivered; pages saved while
// it ran stay in the cart.
package cart
