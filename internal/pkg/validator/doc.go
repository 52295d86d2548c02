// Package validator checks use case inputs against their `validate` tags and
// reports failures per snake_case field, ready for the HTTP error body.
package validator
