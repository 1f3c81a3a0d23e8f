package password

// Hasher turns plain passwords into stored hashes and checks them later.
type Hasher interface {
	Hash(plain string) (string, error)
	// Matches reports whether plain is the password behind hash.
	Matches(hash, plain string) bool
}
