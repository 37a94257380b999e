// Package files locates price tables on disk.
//
// Discovery searches an ordered list of directories (data dir, working
// directory, executable directory) for the configured default file and lists
// every CSV or XLSX table it can see, which the CLI offers as choices when no
// default file exists.
package files
