// Package projection derives the structured view of a session from its blob
// list: the metadata.json document and the parsed CSV tables.
//
// Blob contents are immutable per blob id, so downloaded text is cached by id
// and each CSV is fetched once. Fetch or decode failures keep whatever was
// loaded before and are logged.
//
// CSV handling is deliberately asymmetric. ParseCSV splits on newlines and
// commas without honouring quotes, while SerializeCSV quotes cells that contain
// a comma, quote or newline. A cell written as "a,b" therefore reads back as
// two cells.
package projection
