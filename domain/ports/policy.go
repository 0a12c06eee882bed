package ports

// PathPolicy decides which host paths the file stream channels may touch.
type PathPolicy interface {
	CheckRead(path string) bool
	CheckWrite(path string) bool
}
