package ports

// AddressValidator checks that a string is a well-formed account address and
// returns its normalized form.
type AddressValidator interface {
	Validate(address string) (string, error)
}
