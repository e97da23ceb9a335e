// Package utils holds small helpers shared by the HTTP handlers: input
// validation for room ids and content hashing for entity tags.
package utils
