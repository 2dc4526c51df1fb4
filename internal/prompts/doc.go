// Package prompts builds the instructions sent to the manufacturing agent:
// queued task batches (conversion, metadata generation, deliverable
// documents) and one-shot chat prompts (metadata sync, critique, lifecycle).
package prompts
