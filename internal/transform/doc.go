// Package transform defines the in-process row stages the pipeline runner
// applies between its source and sinks. A Stage declares the schema it
// produces up front so sinks can be configured before the first row flows.
package transform
