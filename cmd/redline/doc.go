// Command redline is the command-line client for the redline daemon: it
// stages and sends annotated pages and browses recorded submissions.
package main
