// Package content models the per-session content document: a single JSON
// object shared by several independent owners.
//
// The workflow stage, the lifecycle and the per-blob comments each own one
// reserved top-level key; every other key belongs to the agent and is carried
// through untouched. Writers never replace the document. They describe their
// change as a Patch, and Merge applies the patches to the latest known
// serialization, validates the reserved keys that changed, and re-serializes.
//
// Parsing is forgiving: a document that does not decode as a JSON object is
// treated as empty so one corrupt field cannot block the workflow.
package content
