// Package updater runs the self-update pipeline of the application.
//
// It resolves the latest release from the registry, compares its tag with the
// running build, downloads the first release asset to a temporary archive,
// installs the matching binary next to the running executable and reports an
// Outcome. Terminating and relaunching the process is left to the caller.
package updater
