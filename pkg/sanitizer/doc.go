// Package sanitizer normalizes free-text user input before validation and
// storage.
//
// All functions are idempotent. Invalid input degrades to an empty string
// instead of an error; the validators decide whether empty is acceptable.
package sanitizer
