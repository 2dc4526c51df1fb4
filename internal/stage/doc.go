// Package stage implements the workflow stage machine of a session.
//
// The stage is persisted under the workflow_stage key of the session content
// and only changes through Machine.Transition. Valid edges are the forward
// chain ingestion → preparation → verification → complete plus the two
// backward edges preparation → ingestion and verification → ingestion.
// Leaving verification backwards skips preparation.
//
// Within ingestion the client also walks a wizard (start, deliverables,
// processing, review). Wizard steps are not persisted; Infer derives them when
// a session is selected.
package stage
