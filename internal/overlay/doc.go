// Package overlay manages the user annotations stored alongside the stage in
// session content: free-text comments per blob and the lifecycle plan with
// its cursor.
//
// Both are written optimistically. The local session content shows the new
// value before the store call returns and is rolled back if the call fails.
package overlay
