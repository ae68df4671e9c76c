package auth

import "errors"

var (
	InvalidCredentialsErr = errors.New("Invalid user credentials")
	NotEligibleErr        = errors.New("identity not eligible")
)
