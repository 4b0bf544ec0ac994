// Package source implements the data source registry: a uniform "fetch
// raw records" contract over the declared api, file and script sources.
//
// The engine only ever calls Registry.Fetch with the extraction
// arguments of an extract dataset; how an API paginates, how a file is
// decoded or how a script is invoked stays behind that call. Every
// failure is reported as a *FetchError tagged with the source name.
package source
