// Package app contains the core application logic: configuration of a
// run, wiring of the pipeline stages, and the end-to-end execution from
// configuration file to final inventory value, decoupled from the CLI
// entrypoint.
package app
