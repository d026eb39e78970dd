// Package repository persists users, side-channel tokens and audit rows in
// MySQL. Sentinel errors defined here let handlers map storage outcomes to
// HTTP responses without inspecting driver errors.
package repository

import "errors"

// ErrEmailExists is returned by UserRepo.Create when the unique email
// constraint fires. Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrTokenInvalid is the single failure result for side-channel token
// redemption. Missing, expired, already-used and wrong-purpose tokens all
// collapse into it so responses cannot be used as an oracle.
var ErrTokenInvalid = errors.New("invalid or expired token")
