// Package versioning keeps one current blob per file name within a session.
//
// The store always creates a new blob on upload, so replacing a file is
// orchestrated here: older blobs with the same name are deleted, and comments
// attached to them are re-keyed onto the new blob id through the content
// writer.
//
// Upload deletes the old versions before uploading the new one. If the upload
// then fails the name is missing until the user uploads again; the failure is
// logged and returned. The structured saves (SaveCSV, SaveMetadata) upload
// first and delete afterwards.
package versioning
