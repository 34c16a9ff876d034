package model

// PlatformUser is the subset of the platform's account record used for
// password-authenticated credential issuance.
type PlatformUser struct {
	ID           string
	Username     string
	DisplayName  string
	PasswordHash string
	Level        string
}
