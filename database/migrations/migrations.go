// Package migrations registers the shop's schema migrations with
// pkg/migration. Import it for side effects wherever migrations must run:
// `shop migrate` and the test database helper.
package migrations
