package fs

// FileSystem is the read side of the disk. Styling modules are loaded and
// cached results are fingerprinted through it.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}
