// Package workspace is one annotation viewing session.
//
// A Workspace owns the canvas for the current page, the capture cart and the
// session settings. It stages previews through preview.Launcher and sends
// through delivery.Orchestrator. A PreviewSession is the second browsing
// context that resolves a staged token and sends it.
package workspace
