// Package archive downloads a release archive to disk and installs the
// application binary found inside it.
//
// Fetcher streams the asset through the shared retry engine into a local
// file with bounded memory. Install makes a single forward pass over a
// gzip-compressed tarball and writes the first entry whose file name matches
// the binary naming convention next to the running executable.
package archive
