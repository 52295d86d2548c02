package hash

// Hash produces and verifies digests of secrets.
type Hash interface {
	Hash(str string) ([]byte, error)
	Verify(hashed, str string) bool
}
