// Package identity owns admin accounts: the credential records consulted at
// login, last-login stamping, and the login audit trail.
//
// The pgx pool is owned by the caller. Stores never close it.
package identity
