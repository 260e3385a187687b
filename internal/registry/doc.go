// Package registry lists, views and downloads persisted submissions.
//
// Viewing writes the artifact to a Handle, a temp file opened in the desktop
// viewer. The registry owns its handles: the previous one is released when a
// new submission is viewed and all are released by Close.
package registry
