// Package config loads techxfer settings from TOML.
//
// Load starts from Default, decodes the file strictly (unknown keys are an
// error), applies environment fallbacks such as TECHXFER_API_TOKEN (a .env
// file next to the config is read first), expands "~" paths and validates
// the result. Callers read durations through helpers like PollInterval
// rather than the raw second counts.
package config
