// Package report renders stored pages for humans: markdown tables for the
// terminal and Mermaid flowcharts of how pages and their States chain together.
package report
