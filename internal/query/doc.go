// Package query runs one query kind across many repositories with a bounded worker pool.
package query
