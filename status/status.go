// Package status holds the numeric result codes shared by the session service
// and the user directory backends.
package status

import "fmt"

// Code is the numeric outcome of a Login or ResolveToken call, or of a single
// directory operation. Zero is success, every other value is terminal for the call.
type Code int32

const (
	OK                  Code = 0
	TokenExpired        Code = 1
	EligibilityRejected Code = 2
	LookupFailed        Code = 3 // Directory has no record for the session id
	Conflict            Code = 4 // Directory already holds the upstream id or session id
	AuthFailed          Code = 5
	CreateFailed        Code = 6
	UpdateFailed        Code = 7
	ResolutionFailed    Code = 8

	// DownstreamUnavailable covers transport and storage failures of a collaborator.
	DownstreamUnavailable Code = 9
)

// Fixed descriptions generated by the service itself.
const (
	DescriptionSuccess         = "Success"
	DescriptionTokenExpired    = "Token expired"
	DescriptionResolution      = "Error handler api"
	DescriptionSessionNotFound = "Session not found"
	DescriptionUserNotFound    = "User not found"
	DescriptionUserExists      = "User already exists"
	DescriptionSessionExists   = "Session id already assigned"
)

var codeNames = map[Code]string{
	OK:                    "OK",
	TokenExpired:          "TOKEN_EXPIRED",
	EligibilityRejected:   "ELIGIBILITY_REJECTED",
	LookupFailed:          "LOOKUP_FAILED",
	Conflict:              "CONFLICT",
	AuthFailed:            "AUTH_FAILED",
	CreateFailed:          "CREATE_FAILED",
	UpdateFailed:          "UPDATE_FAILED",
	ResolutionFailed:      "RESOLUTION_FAILED",
	DownstreamUnavailable: "DOWNSTREAM_UNAVAILABLE",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("STATUS_%d", int32(c))
}

// IsOK reports whether the code is the success code.
func (c Code) IsOK() bool {
	return c == OK
}
